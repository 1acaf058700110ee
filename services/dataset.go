package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"visual-nuts/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

var languageSepRe = regexp.MustCompile(`[\s,;/]+`)

// FormatFromPath picks the dataset format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".html", ".htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func LoadDataset(path string) ([]models.Country, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	countries, err := DecodeDataset(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Printf("[dataset] loaded %d countries from %s", len(countries), path)
	return countries, nil
}

func DecodeDataset(r io.Reader, format Format) ([]models.Country, error) {
	var countries []models.Country

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&countries); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&countries); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatHTML:
		return ParseCountryTable(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if countries == nil {
		countries = []models.Country{}
	}
	return countries, nil
}

// ParseCountryTable reads the first <table> of an HTML page. Every row with at
// least two cells becomes a country: the first cell is the code, the second
// lists its languages.
func ParseCountryTable(r io.Reader) ([]models.Country, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findElement(doc, "table")
	countries := []models.Country{}
	if table == nil {
		return countries, nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if c, ok := rowToCountry(n); ok {
				countries = append(countries, c)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)

	return countries, nil
}

func rowToCountry(tr *html.Node) (models.Country, bool) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "td" {
			var sb strings.Builder
			getText(c, &sb)
			cells = append(cells, strings.TrimSpace(sb.String()))
		}
	}

	if len(cells) < 2 || cells[0] == "" {
		return models.Country{}, false
	}

	languages := []string{}
	for _, l := range languageSepRe.Split(cells[1], -1) {
		if l != "" {
			languages = append(languages, l)
		}
	}

	return models.Country{Country: cells[0], Languages: languages}, true
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func getText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		getText(c, sb)
	}
}
