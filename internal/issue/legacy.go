package issue

import (
	"errors"

	"gopkg.in/yaml.v3"
)

// legacyFrontMatter is the retired layout that carried the title as a
// front matter key instead of an H1 heading in the body.
type legacyFrontMatter struct {
	frontMatter `yaml:",inline"`
	Title       string `yaml:"title"`
}

// DecodeLenient decodes data in the current format, falling back to
// the legacy title-in-front-matter layout. The boolean is true when
// the record was read through the fallback and should be re-encoded.
func DecodeLenient(data []byte) (*Issue, string, string, bool, error) {
	is, title, body, err := Decode(data)
	if err == nil {
		return is, title, body, false, nil
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		return nil, "", "", false, err
	}

	yamlPart, body, splitErr := splitFrontMatter(data)
	if splitErr != nil {
		return nil, "", "", false, err
	}
	var fm legacyFrontMatter
	if yaml.Unmarshal([]byte(yamlPart), &fm) != nil || fm.Title == "" {
		return nil, "", "", false, err
	}
	is, convErr := fm.frontMatter.toIssue()
	if convErr != nil {
		return nil, "", "", false, err
	}
	return is, fm.Title, body, true, nil
}
