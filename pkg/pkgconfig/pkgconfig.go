// Package pkgconfig reads the .pc files a package installs, enough to
// report what modules it provides and what they require. It is a
// reader only; files are served to builds verbatim via
// PKG_CONFIG_PATH.
package pkgconfig

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Path        string
	Id          string
	Name        string
	Description string
	URL         string
	Version     string
	Requires    []string
	Private     []string
	Conflict    []string
	Cflags      string
	Libs        string
	PrivLibs    string
}

// pkg-config searches both; arch-independent files land under share.
var pcDirs = []string{"lib/pkgconfig", "share/pkgconfig"}

// LoadAll reads every .pc file under an install root. A package with
// no pkgconfig dirs yields an empty slice, not an error.
func LoadAll(root string) ([]*Config, error) {
	var configs []*Config

	for _, sub := range pcDirs {
		dir := filepath.Join(root, sub)

		ents, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, ent := range ents {
			if ent.IsDir() || filepath.Ext(ent.Name()) != ".pc" {
				continue
			}

			cfg, err := Load(filepath.Join(dir, ent.Name()))
			if err != nil {
				return nil, err
			}

			configs = append(configs, cfg)
		}
	}

	return configs, nil
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	cfg := &Config{
		Path: path,
		Id:   strings.TrimSuffix(filepath.Base(path), ".pc"),
	}

	vars := map[string]string{}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()

		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}

		key := strings.TrimSpace(line[:sep])
		if key == "" {
			continue
		}

		value := expand(strings.TrimSpace(line[sep+1:]), vars)

		if line[sep] == '=' {
			vars[key] = value
			continue
		}

		switch key {
		case "Name":
			cfg.Name = value
		case "Description":
			cfg.Description = value
		case "URL":
			cfg.URL = value
		case "Version":
			cfg.Version = value
		case "Requires":
			cfg.Requires = splitModules(value)
		case "Requires.private":
			cfg.Private = splitModules(value)
		case "Conflicts":
			cfg.Conflict = splitModules(value)
		case "Cflags":
			cfg.Cflags = value
		case "Libs":
			cfg.Libs = value
		case "Libs.private":
			cfg.PrivLibs = value
		}
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitModules accepts both comma and space separated dependency
// lists, which .pc files mix freely.
func splitModules(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// expand substitutes ${var} references in a single pass.
func expand(s string, vars map[string]string) string {
	var out strings.Builder

	for {
		open := strings.Index(s, "${")
		if open < 0 {
			out.WriteString(s)
			return out.String()
		}

		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			out.WriteString(s)
			return out.String()
		}

		out.WriteString(s[:open])
		out.WriteString(vars[s[open+2:open+end]])
		s = s[open+end+1:]
	}
}
