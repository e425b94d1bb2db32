package connector

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// DefaultURL is the APIMS staging endpoint.
const DefaultURL = "https://api-staging.imio.be/bosa/v1"

const maxFieldLen = 128

// Config is the static credential set for one municipality. It is a value
// object: copy it freely, never mutate it after Validate.
type Config struct {
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	MunicipalityID string `toml:"municipality_id"` // token or NIS code
}

// ValidateURL rejects base URLs that end with a slash or carry a query or
// fragment; document paths are appended to them verbatim.
func ValidateURL(v string) error {
	if strings.HasSuffix(v, "/") {
		return fmt.Errorf("%s ne dois pas finir avec un \"/\"", v)
	}
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q: scheme must be http or https", v)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q: host required", v)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("url %q: query and fragment not allowed", v)
	}
	return nil
}

// WithDefaults fills blank fields.
func (c Config) WithDefaults() Config {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		c.URL = DefaultURL
	}
	return c
}

func (c Config) Validate() error {
	if err := ValidateURL(c.URL); err != nil {
		return err
	}
	fields := []struct{ name, v string }{
		{"url", c.URL},
		{"username", c.Username},
		{"password", c.Password},
		{"municipality_id", c.MunicipalityID},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.v) > maxFieldLen {
			return fmt.Errorf("%s: longer than %d characters", f.name, maxFieldLen)
		}
	}
	if strings.TrimSpace(c.MunicipalityID) == "" {
		return errors.New("municipality_id required")
	}
	return nil
}

// documentURL builds {base}/mon-dossier-documents/{person}/{type}.
func (c Config) documentURL(personNRN, documentType string) string {
	return c.URL + "/mon-dossier-documents/" + url.PathEscape(personNRN) + "/" + url.PathEscape(documentType)
}
