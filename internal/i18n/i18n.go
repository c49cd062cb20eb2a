// Package i18n translates interface strings. Catalogs are nested YAML maps
// flattened to dotted keys ("auth.signUp.title").
package i18n

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// DefaultLang is used when nothing better is known.
const DefaultLang = "en"

// Locale is an entry of the language selector.
type Locale struct {
	Code   string
	Region string
}

var supported = []Locale{
	{Code: "en", Region: "GB"},
	{Code: "fr", Region: "FR"},
}

// Supported lists the selectable locales in display order.
func Supported() []Locale {
	out := make([]Locale, len(supported))
	copy(out, supported)
	return out
}

// Normalize maps a tag such as "fr-CA" to a supported code, or "" if none.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	for _, l := range supported {
		if l.Code == tag {
			return tag
		}
	}
	return ""
}

// FlagEmoji turns an ISO 3166-1 alpha-2 region into its flag, e.g. "GB".
// Anything else yields "".
func FlagEmoji(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + c - 'A')
	}
	return b.String()
}

// Catalog holds the messages of every supported language.
type Catalog struct {
	mu   sync.RWMutex
	msgs map[string]map[string]string
}

// New loads the embedded catalogs.
func New() (*Catalog, error) {
	c := &Catalog{msgs: make(map[string]map[string]string)}
	for _, l := range supported {
		data, err := embedded.ReadFile("locales/" + l.Code + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read %s catalog: %w", l.Code, err)
		}
		flat, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s catalog: %w", l.Code, err)
		}
		c.msgs[l.Code] = flat
	}
	return c, nil
}

// MustNew is New for package-level setup in tests and main.
func MustNew() *Catalog {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// T translates key into lang. Missing keys fall back to English, then to the
// key itself. args are name/value pairs substituted into {{name}}.
func (c *Catalog) T(lang, key string, args ...any) string {
	msg, ok := c.lookup(lang, key)
	if !ok {
		msg, ok = c.lookup(DefaultLang, key)
	}
	if !ok {
		msg = key
	}
	return interpolate(msg, args)
}

// Has reports whether lang defines key itself.
func (c *Catalog) Has(lang, key string) bool {
	_, ok := c.lookup(lang, key)
	return ok
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.msgs[lang][key]
	return msg, ok
}

// LoadDir merges <dir>/<code>.yaml over the current messages. Missing files
// are skipped.
func (c *Catalog) LoadDir(dir string) error {
	for _, l := range supported {
		data, err := os.ReadFile(filepath.Join(dir, l.Code+".yaml"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s override: %w", l.Code, err)
		}
		flat, err := parse(data)
		if err != nil {
			return fmt.Errorf("parse %s override: %w", l.Code, err)
		}

		c.mu.Lock()
		for k, v := range flat {
			c.msgs[l.Code][k] = v
		}
		c.mu.Unlock()
	}
	return nil
}

func parse(data []byte) (map[string]string, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	flatten("", tree, flat)
	return flat, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func interpolate(msg string, args []any) string {
	if len(args) < 2 || !strings.Contains(msg, "{{") {
		return msg
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{{"+fmt.Sprint(args[i])+"}}", fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// IsKey reports whether s looks like a catalog key carrying one of the
// given prefixes, e.g. "auth." for errors raised by the auth forms.
func IsKey(s string, prefixes ...string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
