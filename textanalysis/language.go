package textanalysis

import (
	"bufio"
	"embed"
	"io/fs"
	"path"
	"strings"
)

//go:embed stopwords/*.txt
var stopwordFiles embed.FS

var (
	englishStopwords    map[string]struct{}
	nonEnglishStopwords map[string]struct{}
)

func init() {
	englishStopwords = map[string]struct{}{}
	nonEnglishStopwords = map[string]struct{}{}

	files, err := fs.Glob(stopwordFiles, "stopwords/*.txt")
	if err != nil {
		panic(err)
	}
	for _, name := range files {
		dst := nonEnglishStopwords
		if path.Base(name) == "english.txt" {
			dst = englishStopwords
		}
		if err := loadStopwords(name, dst); err != nil {
			panic(err)
		}
	}
	// words shared with English count as English
	for w := range englishStopwords {
		delete(nonEnglishStopwords, w)
	}
}

func loadStopwords(name string, dst map[string]struct{}) error {
	f, err := stopwordFiles.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			dst[w] = struct{}{}
		}
	}
	return sc.Err()
}

// IsEnglish reports whether text holds more distinct English stop words than
// stop words of the other bundled languages.
func IsEnglish(text string) bool {
	seen := map[string]struct{}{}
	english, other := 0, 0
	for _, token := range tokenize(Sanitize(text)) {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if _, ok := englishStopwords[token]; ok {
			english++
		}
		if _, ok := nonEnglishStopwords[token]; ok {
			other++
		}
	}
	return english > other
}
