package textcorrect

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed dict/*.txt
var builtinDicts embed.FS

// Dictionary maps lowercase terms to corpus frequencies.
type Dictionary map[string]int

// ReadDictionary parses "term count" lines. Blank lines and lines starting
// with '#' are skipped; a missing count means 1.
func ReadDictionary(r io.Reader) (Dictionary, error) {
	d := make(Dictionary)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		count := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("dictionary line %d: bad count %q", line, fields[1])
			}
			count = n
		}
		d[strings.ToLower(fields[0])] += count
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDictionary reads path, or the built-in list for lang when path is empty.
func LoadDictionary(path, lang string) (Dictionary, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if path == "" {
		f, err = builtinDicts.Open("dict/" + lang + ".txt")
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s dictionary: %w", lang, err)
	}
	defer func() { _ = f.Close() }()
	return ReadDictionary(f)
}
