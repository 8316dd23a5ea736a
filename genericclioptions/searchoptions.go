package genericclioptions

// SearchOptions defines common filtering options for CLI commands that
// support filtering secrets.
type SearchOptions struct {
	ID       int
	IDs      []int
	Name     string
	Labels   []string
	Wildcard string

	Type               string
	Environment        string
	Favorite           bool
	ExpiringWithinDays int
}

// WildcardFrom sets the wildcard search term from the first positional
// argument, if any was given.
func (o *SearchOptions) WildcardFrom(args []string) {
	if len(args) > 0 {
		o.Wildcard = args[0]
	}
}

type Usage int

const (
	_ Usage = iota
	ID
	NAME
	LABELS
	TYPE
	ENVIRONMENT
	FAVORITE
	EXPIRING
)

var usage = map[Usage]string{
	ID:          "filter by secret ID (comma-separated or repeated)",
	NAME:        "filter by secret name",
	LABELS:      "filter by secret label (comma-separated or repeated)",
	TYPE:        "filter by secret type (e.g. password, api_key, document)",
	ENVIRONMENT: "filter by secret environment (e.g. production, staging)",
	FAVORITE:    "only show favorited secrets",
	EXPIRING:    "only show secrets expiring within the given number of days",
}

var _ BaseOptions = &SearchOptions{}

func (*SearchOptions) Usage(field Usage) string {
	if u, ok := usage[field]; ok {
		return u
	}

	return "unknown usage"
}

func (*SearchOptions) Complete() error {
	return nil
}

func (*SearchOptions) Validate() error {
	return nil
}
