package transport

// Default names of the special call-time params.
const (
	DefaultBodyAttr    = "body"
	DefaultHeadersAttr = "headers"
	DefaultAuthAttr    = "auth"
	DefaultTimeoutAttr = "timeout"
	DefaultHostAttr    = "host"
)

// MethodDescriptor is the template for one resource method.
type MethodDescriptor struct {
	// Host is the base URL, e.g. "https://api.example.com".
	Host string
	// AllowResourceHostOverride lets a call-time host param replace Host.
	AllowResourceHostOverride bool
	// Path is the path template; "{id}" is required, "{id?}" optional.
	Path string
	// Method is the HTTP verb. Defaults to "get".
	Method string
	// Headers are sent on every call of this method.
	Headers map[string]string
	// Params are default params, overridden by call-time params.
	Params map[string]any
	// QueryParamAlias renames params when they become query string keys.
	QueryParamAlias map[string]string

	BodyAttr    string
	HeadersAttr string
	AuthAttr    string
	TimeoutAttr string
	HostAttr    string
}

func (d *MethodDescriptor) bodyAttr() string    { return orDefault(d.BodyAttr, DefaultBodyAttr) }
func (d *MethodDescriptor) headersAttr() string { return orDefault(d.HeadersAttr, DefaultHeadersAttr) }
func (d *MethodDescriptor) authAttr() string    { return orDefault(d.AuthAttr, DefaultAuthAttr) }
func (d *MethodDescriptor) timeoutAttr() string { return orDefault(d.TimeoutAttr, DefaultTimeoutAttr) }
func (d *MethodDescriptor) hostAttr() string    { return orDefault(d.HostAttr, DefaultHostAttr) }

func (d *MethodDescriptor) isSpecial(key string) bool {
	switch key {
	case d.bodyAttr(), d.headersAttr(), d.authAttr(), d.timeoutAttr(), d.hostAttr():
		return true
	}
	return false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
