package docproto

// Header names shared by the document store server and its HTTP client
const (
	HeaderVersion   = "Version"          // Version token of the document returned by the server
	HeaderParents   = "Parents"          // Version token the client based its write on
	HeaderMessage   = "X-Commit-Message" // Human-readable description of a write
	HeaderSubscribe = "Subscribe"        // "true" opens an update stream on GET
)

// ContentTypeJSONPatch is the media type PATCH requests must carry
const ContentTypeJSONPatch = "application/json-patch+json"

// StatusSubscribed is the status code sent when a subscription stream opens
const StatusSubscribed = 209

// DocumentsPrefix is the route prefix under which documents are served
const DocumentsPrefix = "/documents/"

// Patch represents a single change sent to subscribers
type Patch struct {
	Unit    string `json:"unit"`    // Unit of the patch operation, e.g. "replace"
	Range   string `json:"range"`   // Range is the JSON pointer the patch applies to, e.g. "/12/title"
	Content string `json:"content"` // Content is the JSON encoded value of the patch
}

// Update represents one entry of a subscription stream, either patches or a full body
type Update struct {
	Version string  `json:"version"`           // Version of the document after this update
	Parents string  `json:"parents"`           // Version this update is based on
	Patches []Patch `json:"patches,omitempty"` // Optional list of patches
	Body    string  `json:"body,omitempty"`    // Optional full body content
}

// ErrorResponse is the JSON body sent with non-2xx responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Version string `json:"version,omitempty"` // Current version when a write was rejected as stale
}
