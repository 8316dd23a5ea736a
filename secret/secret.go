// Package secret defines the plaintext bodies stored inside a vault's
// general secret records: a tagged union of record shapes, each carrying
// only its own sensitive payload plus a handful of descriptive fields.
//
// A [Body] is never persisted directly. It is always JSON-encoded and
// sealed by [github.com/ladzaretti/vlt-cli/vaultcrypto] before leaving the
// process; callers that decrypt a Body MUST call [Body.Zero] once done
// with it, since Go has no destructors to do this automatically.
package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
	"unsafe"
)

// Type is the small, stable string discriminator carried alongside a
// sealed body so that forward-compatible archives survive variant
// additions.
type Type string

const (
	TypePassword          Type = "password"
	TypeSSHKey            Type = "ssh_key"
	TypeAPIKey            Type = "api_key"
	TypeToken             Type = "token"
	TypeDocument          Type = "document"
	TypeConfiguration     Type = "configuration"
	TypeSecureNote        Type = "secure_note"
	TypeCertificate       Type = "certificate"
	TypeConnectionString  Type = "connection_string"
	TypeCloudCredentials  Type = "cloud_credentials"
	TypeCustom            Type = "custom"
)

// Body is a tagged union of every supported secret shape. Exactly one of
// the pointer fields is non-nil, selected by Type.
type Body struct {
	Type Type `json:"type"`

	Password          *Password          `json:"password,omitempty"`
	SSHKey            *SSHKey            `json:"ssh_key,omitempty"`
	APIKey            *APIKey            `json:"api_key,omitempty"`
	Token             *Token             `json:"token,omitempty"`
	Document          *Document          `json:"document,omitempty"`
	Configuration     *Configuration     `json:"configuration,omitempty"`
	SecureNote        *SecureNote        `json:"secure_note,omitempty"`
	Certificate       *Certificate       `json:"certificate,omitempty"`
	ConnectionString  *ConnectionString  `json:"connection_string,omitempty"`
	CloudCredentials  *CloudCredentials  `json:"cloud_credentials,omitempty"`
	Custom            *Custom            `json:"custom,omitempty"`
}

// Zeroable is implemented by every variant payload; Zero overwrites all
// owned sensitive fields in place.
type Zeroable interface {
	Zero()
}

// Zero dispatches to the active variant's Zero method. It is a no-op on a
// Body with no variant set.
func (b *Body) Zero() {
	if b == nil {
		return
	}

	for _, z := range []Zeroable{
		b.Password, b.SSHKey, b.APIKey, b.Token, b.Document, b.Configuration,
		b.SecureNote, b.Certificate, b.ConnectionString, b.CloudCredentials, b.Custom,
	} {
		if z != nil {
			z.Zero()
		}
	}
}

// Marshal renders the body to its self-describing JSON encoding. The
// result is only ever handed to the crypto envelope for sealing.
func Marshal(b *Body) ([]byte, error) {
	return json.Marshal(b)
}

// Unmarshal parses a JSON-encoded body previously produced by [Marshal].
func Unmarshal(data []byte) (*Body, error) {
	var b Body
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("secret: unmarshal body: %w", err)
	}

	return &b, nil
}

// zeroStringVal overwrites a string's backing bytes in place.
//
// Go strings are normally immutable and converting to []byte always
// copies, so ordinary assignment cannot scrub the original backing array.
// Every sensitive string handled here originates from JSON decoding or
// user input — never a compile-time literal — so it is safe to reach
// into its backing array via unsafe.Slice/unsafe.StringData and zero it
// directly.
func zeroStringVal(s string) {
	if len(s) == 0 {
		return
	}

	b := unsafe.Slice(unsafe.StringData(s), len(s))
	for i := range b {
		b[i] = 0
	}
}

func zeroString(s *string) {
	if s == nil {
		return
	}

	zeroStringVal(*s)
	*s = ""
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroStringMap(m map[string]string) {
	for k, v := range m {
		zeroStringVal(v)
		delete(m, k)
	}
}

func zeroStringSlice(s []string) {
	for i := range s {
		zeroStringVal(s[i])
		s[i] = ""
	}
}

// Password is a website/service credential.
type Password struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	URL      *string `json:"url,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

func (p *Password) Zero() {
	if p == nil {
		return
	}

	zeroString(&p.Username)
	zeroString(&p.Password)
	zeroString(p.URL)
	zeroString(p.Notes)
}

// SSHKeyType enumerates supported SSH key algorithms.
type SSHKeyType string

const (
	SSHKeyRSA     SSHKeyType = "rsa"
	SSHKeyEd25519 SSHKeyType = "ed25519"
	SSHKeyECDSA   SSHKeyType = "ecdsa"
	SSHKeyDSA     SSHKeyType = "dsa"
)

// SSHKey is an SSH key pair plus its descriptors.
type SSHKey struct {
	KeyType     SSHKeyType `json:"key_type"`
	PrivateKey  *string    `json:"private_key,omitempty"`
	PublicKey   *string    `json:"public_key,omitempty"`
	Passphrase  *string    `json:"passphrase,omitempty"`
	Comment     *string    `json:"comment,omitempty"`
	Fingerprint *string    `json:"fingerprint,omitempty"`
}

func (k *SSHKey) Zero() {
	if k == nil {
		return
	}

	zeroString(k.PrivateKey)
	zeroString(k.PublicKey)
	zeroString(k.Passphrase)
	zeroString(k.Comment)
	zeroString(k.Fingerprint)
}

// ApiKeyProvider is a closed set of well-known API key issuers, with a
// Custom escape hatch for anything else.
type ApiKeyProvider string

const (
	ProviderAWS       ApiKeyProvider = "aws"
	ProviderGCP       ApiKeyProvider = "gcp"
	ProviderAzure     ApiKeyProvider = "azure"
	ProviderGitHub    ApiKeyProvider = "github"
	ProviderGitLab    ApiKeyProvider = "gitlab"
	ProviderDockerHub ApiKeyProvider = "dockerhub"
	ProviderStripe    ApiKeyProvider = "stripe"
	ProviderTwilio    ApiKeyProvider = "twilio"
	ProviderSendGrid  ApiKeyProvider = "sendgrid"
	ProviderSlack     ApiKeyProvider = "slack"
	ProviderDiscord   ApiKeyProvider = "discord"
	ProviderOpenAI    ApiKeyProvider = "openai"
	ProviderAnthropic ApiKeyProvider = "anthropic"
	ProviderGeneric   ApiKeyProvider = "generic"
)

// DefaultEndpoint returns the well-known API base URL for a provider, if
// one exists; it is used to pre-fill ApiKey.EndpointURL on creation.
func DefaultEndpoint(p ApiKeyProvider) (string, bool) {
	endpoints := map[ApiKeyProvider]string{
		ProviderGitHub:    "https://api.github.com",
		ProviderGitLab:    "https://gitlab.com/api/v4",
		ProviderStripe:    "https://api.stripe.com/v1",
		ProviderTwilio:    "https://api.twilio.com/2010-04-01",
		ProviderSendGrid:  "https://api.sendgrid.com/v3",
		ProviderSlack:     "https://slack.com/api",
		ProviderOpenAI:    "https://api.openai.com/v1",
		ProviderAnthropic: "https://api.anthropic.com/v1",
	}

	ep, ok := endpoints[p]

	return ep, ok
}

// Permissions describes the scope granted to an API key.
type Permissions struct {
	Read           bool                `json:"read"`
	Write          bool                `json:"write"`
	Admin          bool                `json:"admin"`
	Scopes         []string            `json:"scopes,omitempty"`
	ResourceAccess map[string][]string `json:"resource_access,omitempty"`
}

// RotationInfo tracks an API key's rotation schedule.
type RotationInfo struct {
	AutoRotate            bool       `json:"auto_rotate"`
	RotationPeriodDays    *uint32    `json:"rotation_period_days,omitempty"`
	LastRotated           *time.Time `json:"last_rotated,omitempty"`
	NextRotation          *time.Time `json:"next_rotation,omitempty"`
	RotationReminderDays  *uint32    `json:"rotation_reminder_days,omitempty"`
}

// RateLimitInfo captures the provider-reported rate limit state.
type RateLimitInfo struct {
	RequestsPerMinute *uint32    `json:"requests_per_minute,omitempty"`
	RequestsPerHour   *uint32    `json:"requests_per_hour,omitempty"`
	RequestsPerDay    *uint32    `json:"requests_per_day,omitempty"`
	CurrentUsage      uint32     `json:"current_usage"`
	ResetTime         *time.Time `json:"reset_time,omitempty"`
}

// UsageStats tracks how an API key has been used over time.
type UsageStats struct {
	LastUsed      *time.Time     `json:"last_used,omitempty"`
	UsageCount    uint64         `json:"usage_count"`
	RateLimitInfo *RateLimitInfo `json:"rate_limit_info,omitempty"`
	ErrorCount    uint64         `json:"error_count"`
	LastError     *string        `json:"last_error,omitempty"`
}

// APIKey is a provider API key plus its permissions, rotation policy, and
// usage statistics.
type APIKey struct {
	Provider     ApiKeyProvider `json:"provider"`
	KeyID        string         `json:"key_id"`
	APIKey       string         `json:"api_key"`
	APISecret    *string        `json:"api_secret,omitempty"`
	TokenType    string         `json:"token_type"`
	Permissions  Permissions    `json:"permissions"`
	Environment  string         `json:"environment"`
	EndpointURL  *string        `json:"endpoint_url,omitempty"`
	RotationInfo RotationInfo   `json:"rotation_info"`
	UsageStats   UsageStats     `json:"usage_stats"`
}

// NewAPIKey constructs an APIKey, defaulting TokenType to "Bearer" and
// Environment to "production" when unspecified, and pre-filling the
// endpoint URL from the provider's known default.
func NewAPIKey(provider ApiKeyProvider, keyID, apiKey string) *APIKey {
	k := &APIKey{
		Provider:    provider,
		KeyID:       keyID,
		APIKey:      apiKey,
		TokenType:   "Bearer",
		Environment: "production",
	}

	if ep, ok := DefaultEndpoint(provider); ok {
		k.EndpointURL = &ep
	}

	return k
}

func (k *APIKey) Zero() {
	if k == nil {
		return
	}

	zeroString(&k.APIKey)
	zeroString(k.APISecret)
	zeroStringSlice(k.Permissions.Scopes)

	for key, vals := range k.Permissions.ResourceAccess {
		zeroStringSlice(vals)
		delete(k.Permissions.ResourceAccess, key)
	}

	zeroString(k.UsageStats.LastError)
}

// Token is a generic bearer/OAuth-style token.
type Token struct {
	TokenType    string            `json:"token_type"`
	AccessToken  string            `json:"access_token"`
	RefreshToken *string           `json:"refresh_token,omitempty"`
	TokenSecret  *string           `json:"token_secret,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	IssuedAt     *time.Time        `json:"issued_at,omitempty"`
	Issuer       *string           `json:"issuer,omitempty"`
	Audience     *string           `json:"audience,omitempty"`
	Subject      *string           `json:"subject,omitempty"`
	Scopes       []string          `json:"scopes,omitempty"`
	Claims       map[string]string `json:"claims,omitempty"`
}

func (t *Token) Zero() {
	if t == nil {
		return
	}

	zeroString(&t.AccessToken)
	zeroString(t.RefreshToken)
	zeroString(t.TokenSecret)
	zeroStringSlice(t.Scopes)
	zeroStringMap(t.Claims)
}

// Document is an arbitrary file stored inline with a content checksum.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
	Checksum    string `json:"checksum"`
}

// NewDocument constructs a Document, always computing Checksum as the
// lowercase hex SHA-256 of content.
func NewDocument(filename, contentType string, content []byte) *Document {
	sum := sha256.Sum256(content)

	return &Document{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		Checksum:    hex.EncodeToString(sum[:]),
	}
}

func (d *Document) Zero() {
	if d == nil {
		return
	}

	zeroString(&d.Filename)
	zeroString(&d.ContentType)
	zeroBytes(d.Content)
	zeroString(&d.Checksum)
}

// ConfigFormat enumerates Configuration's serialisation shape.
type ConfigFormat string

const (
	ConfigFormatEnv  ConfigFormat = "env"
	ConfigFormatJSON ConfigFormat = "json"
	ConfigFormatYAML ConfigFormat = "yaml"
	ConfigFormatTOML ConfigFormat = "toml"
)

// Configuration is a named variable bundle.
type Configuration struct {
	Format    ConfigFormat      `json:"format"`
	Variables map[string]string `json:"variables,omitempty"`
	Template  *string           `json:"template,omitempty"`
}

func (c *Configuration) Zero() {
	if c == nil {
		return
	}

	zeroStringMap(c.Variables)
	zeroString(c.Template)
}

// NoteFormat enumerates SecureNote's content encoding.
type NoteFormat string

const (
	NoteFormatPlain    NoteFormat = "plain"
	NoteFormatMarkdown NoteFormat = "markdown"
	NoteFormatHTML     NoteFormat = "html"
	NoteFormatRich     NoteFormat = "rich"
)

// SecureNote is free-form text content.
type SecureNote struct {
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Format  NoteFormat `json:"format"`
}

func (n *SecureNote) Zero() {
	if n == nil {
		return
	}

	zeroString(&n.Title)
	zeroString(&n.Content)
}

// CertificateType enumerates the certificate's purpose.
type CertificateType string

const (
	CertTypeTLS    CertificateType = "tls"
	CertTypeCA     CertificateType = "ca"
	CertTypeClient CertificateType = "client"
)

// Certificate is a PEM certificate plus optional private key and chain.
type Certificate struct {
	CertType   CertificateType `json:"cert_type"`
	Certificate string         `json:"certificate"`
	PrivateKey *string         `json:"private_key,omitempty"`
	CAChain    []string        `json:"ca_chain,omitempty"`
	Subject    *string         `json:"subject,omitempty"`
	Issuer     *string         `json:"issuer,omitempty"`
}

func (c *Certificate) Zero() {
	if c == nil {
		return
	}

	zeroString(&c.Certificate)
	zeroString(c.PrivateKey)
	zeroStringSlice(c.CAChain)
	zeroString(c.Subject)
	zeroString(c.Issuer)
}

// DatabaseType enumerates ConnectionString's database kind.
type DatabaseType string

const (
	DBTypePostgres  DatabaseType = "postgres"
	DBTypeMySQL     DatabaseType = "mysql"
	DBTypeSQLite    DatabaseType = "sqlite"
	DBTypeMongoDB   DatabaseType = "mongodb"
	DBTypeRedis     DatabaseType = "redis"
)

// SslConfig is ConnectionString's optional TLS configuration.
type SslConfig struct {
	Enabled    bool    `json:"enabled"`
	VerifySSL  bool    `json:"verify_ssl"`
	CACert     *string `json:"ca_cert,omitempty"`
	ClientCert *string `json:"client_cert,omitempty"`
	ClientKey  *string `json:"client_key,omitempty"`
}

func (s *SslConfig) Zero() {
	if s == nil {
		return
	}

	zeroString(s.CACert)
	zeroString(s.ClientCert)
	zeroString(s.ClientKey)
}

// ConnectionString is a database connection descriptor; URI is always
// re-rendered from the structured fields on construction, never trusted
// from caller input.
type ConnectionString struct {
	DatabaseType DatabaseType `json:"database_type"`
	Host         string       `json:"host"`
	Port         *uint16      `json:"port,omitempty"`
	Database     string       `json:"database"`
	Username     string       `json:"username"`
	Password     string       `json:"password"`
	URI          string       `json:"connection_string"`
	SSLConfig    *SslConfig   `json:"ssl_config,omitempty"`
}

// NewConnectionString builds a ConnectionString, rendering URI from the
// other fields.
func NewConnectionString(dbType DatabaseType, host string, port *uint16, database, username, password string) *ConnectionString {
	c := &ConnectionString{
		DatabaseType: dbType,
		Host:         host,
		Port:         port,
		Database:     database,
		Username:     username,
		Password:     password,
	}
	c.URI = c.renderURI()

	return c
}

func (c *ConnectionString) renderURI() string {
	portPart := ""
	if c.Port != nil {
		portPart = fmt.Sprintf(":%d", *c.Port)
	}

	return fmt.Sprintf("%s://%s:%s@%s%s/%s", c.DatabaseType, c.Username, c.Password, c.Host, portPart, c.Database)
}

func (c *ConnectionString) Zero() {
	if c == nil {
		return
	}

	zeroString(&c.Host)
	zeroString(&c.Database)
	zeroString(&c.Username)
	zeroString(&c.Password)
	zeroString(&c.URI)
	c.SSLConfig.Zero()
}

// CloudProvider enumerates CloudCredentials' issuer.
type CloudProvider string

const (
	CloudAWS   CloudProvider = "aws"
	CloudGCP   CloudProvider = "gcp"
	CloudAzure CloudProvider = "azure"
)

// CloudCredentials is a cloud-provider access key pair.
type CloudCredentials struct {
	Provider         CloudProvider     `json:"provider"`
	AccessKey        string            `json:"access_key"`
	SecretKey        string            `json:"secret_key"`
	Region           *string           `json:"region,omitempty"`
	AdditionalConfig map[string]string `json:"additional_config,omitempty"`
}

func (c *CloudCredentials) Zero() {
	if c == nil {
		return
	}

	zeroString(&c.AccessKey)
	zeroString(&c.SecretKey)
	zeroString(c.Region)
	zeroStringMap(c.AdditionalConfig)
}

// Custom is a free-form, schema-named field map for anything the other
// variants don't cover.
type Custom struct {
	Schema string            `json:"schema"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (c *Custom) Zero() {
	if c == nil {
		return
	}

	zeroString(&c.Schema)
	zeroStringMap(c.Fields)
}
