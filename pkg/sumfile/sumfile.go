// Package sumfile tracks content hashes of fetched source archives in
// a small ledger, one line per entity: "algo:base58sum path". Entities
// are unique; re-adding replaces the previous entry, so a forced
// re-fetch records the new sum.
package sumfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
)

type entry struct {
	algo string
	hash []byte
}

type Sumfile struct {
	sums map[string]entry
}

func New() *Sumfile {
	return &Sumfile{sums: map[string]entry{}}
}

func (s *Sumfile) Load(r io.Reader) error {
	if s.sums == nil {
		s.sums = map[string]entry{}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		colon := strings.IndexByte(line, ':')
		space := strings.IndexByte(line, ' ')
		if colon < 0 || space < colon {
			continue
		}

		hash, err := base58.Decode(line[colon+1 : space])
		if err != nil {
			return err
		}

		s.sums[strings.TrimSpace(line[space+1:])] = entry{
			algo: line[:colon],
			hash: hash,
		}
	}

	return sc.Err()
}

// Add records h for entity, replacing any previous sum, and returns
// the rendered "algo:base58" form.
func (s *Sumfile) Add(entity, algo string, h []byte) (string, error) {
	if s.sums == nil {
		s.sums = map[string]entry{}
	}

	s.sums[entity] = entry{algo: algo, hash: h}

	return FormatSum(algo, h), nil
}

func (s *Sumfile) Lookup(entity string) (string, []byte, bool) {
	e, ok := s.sums[entity]
	if !ok {
		return "", nil, false
	}

	return e.algo, e.hash, true
}

// Save writes entries sorted by entity so the ledger diffs cleanly.
func (s *Sumfile) Save(w io.Writer) error {
	names := make([]string, 0, len(s.sums))
	for name := range s.sums {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		e := s.sums[name]

		if _, err := fmt.Fprintf(w, "%s %s\n", FormatSum(e.algo, e.hash), name); err != nil {
			return err
		}
	}

	return nil
}

// LoadFile reads a sumfile from path. A missing file yields an empty
// sumfile, not an error.
func LoadFile(path string) (*Sumfile, error) {
	sf := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sf, nil
		}

		return nil, err
	}

	defer f.Close()

	if err := sf.Load(f); err != nil {
		return nil, err
	}

	return sf, nil
}

func (s *Sumfile) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer f.Close()

	return s.Save(f)
}

// FormatSum renders the "algo:base58" form used both in sumfile lines
// and in manifest checksum fields.
func FormatSum(algo string, h []byte) string {
	return algo + ":" + base58.Encode(h)
}

func ParseSum(s string) (string, []byte, error) {
	colon := strings.IndexByte(s, ':')
	if colon == -1 {
		return "", nil, fmt.Errorf("malformed sum, expected algo:value: %s", s)
	}

	h, err := base58.Decode(s[colon+1:])
	if err != nil {
		return "", nil, err
	}

	return s[:colon], h, nil
}
