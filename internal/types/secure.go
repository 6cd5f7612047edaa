package types

import "net/url"

// redactedPlaceholder replaces secret values wherever they would be printed.
const redactedPlaceholder = "***REDACTED***"

// SecretString holds a credential-bearing value such as a Redis URL with an
// embedded password. It prints and marshals as a placeholder so configuration
// dumps and structured logs never carry the plaintext.
type SecretString string

// String returns the redacted placeholder.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the raw plaintext value. Call it only at the point the value
// is handed to a driver.
func (s SecretString) Unmask() string {
	return string(s)
}

// Empty reports whether no secret was configured.
func (s SecretString) Empty() bool {
	return s == ""
}

// Host returns the host component when the secret is a URL, for log lines
// that need to say where a connection goes without saying how it
// authenticates. Non-URL secrets yield "".
func (s SecretString) Host() string {
	u, err := url.Parse(string(s))
	if err != nil {
		return ""
	}
	return u.Host
}
