package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StudyDocument is one generated study-material file.
type StudyDocument struct {
	// Source is the file's base name, which is what retrieval reports.
	Source    string
	Ext       string
	Topic     string
	Signature string
	Content   string
}

// QueryTestCase defines a query and the sources allowed in its results.
// Every result must come from ExpectedSources and, when Exhaustive is set,
// every expected source must be returned.
type QueryTestCase struct {
	Query           string
	ExpectedSources []string
	Exhaustive      bool
	Description     string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []StudyDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

type studyTopic struct {
	name    string
	query   string
	content string
}

// topics use vocabulary that does not overlap between entries so each topic
// query only matches its own documents.
var topics = []studyTopic{
	{"photosynthesis", "chlorophyll chloroplasts", "Photosynthesis lets plants turn sunlight into sugar inside chloroplasts using chlorophyll pigments."},
	{"mitosis", "mitosis telophase", "Mitosis divides one nucleus into two identical daughter nuclei through prophase, metaphase, anaphase and telophase."},
	{"motion", "inertia newton", "Newton described inertia, acceleration and reaction forces in three laws of motion."},
	{"entropy", "entropy thermodynamics", "Entropy in a closed system never decreases according to the second law of thermodynamics."},
	{"bastille", "bastille revolution", "The French Revolution began in 1789 with the storming of the Bastille in Paris."},
	{"triangles", "hypotenuse pythagoras", "Pythagoras showed that the squares of the legs of a right triangle add up to the square of the hypotenuse."},
	{"volcanoes", "magma volcanoes", "Volcanoes erupt when magma rises through the crust and escapes as lava and ash."},
	{"water", "evaporation precipitation", "Evaporation, condensation and precipitation move water through the hydrological cycle."},
	{"elements", "mendeleev periodic", "Mendeleev arranged the elements of the periodic table by atomic mass and valence."},
	{"hamlet", "hamlet shakespeare", "Shakespeare wrote Hamlet, a tragedy about a Danish prince seeking revenge."},
	{"fractions", "denominators fractions", "Fractions with unlike denominators need a common denominator before they can be added."},
	{"markets", "equilibrium demand", "Supply and demand curves meet at the equilibrium price in a competitive market."},
}

// BuildCorpus returns perTopic documents for every topic, cycling through the
// supported extensions. Each document carries a unique signature keyword so a
// query can single it out.
func BuildCorpus(perTopic int) *Corpus {
	var docs []StudyDocument
	for round := 0; round < perTopic; round++ {
		for _, tp := range topics {
			i := len(docs)
			ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
			sig := fmt.Sprintf("sig%03d", i)
			docs = append(docs, StudyDocument{
				Source:    fmt.Sprintf("%s-%02d%s", tp.name, round, ext),
				Ext:       ext,
				Topic:     tp.name,
				Signature: sig,
				Content:   fmt.Sprintf("%s Revision card %s.", tp.content, sig),
			})
		}
	}
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

func buildQueryTestCases(docs []StudyDocument) []QueryTestCase {
	byTopic := make(map[string][]string)
	var cases []QueryTestCase
	for _, d := range docs {
		byTopic[d.Topic] = append(byTopic[d.Topic], d.Source)
		cases = append(cases, QueryTestCase{
			Query:           d.Signature,
			ExpectedSources: []string{d.Source},
			Exhaustive:      true,
			Description:     "signature of " + d.Source,
		})
	}
	for _, tp := range topics {
		cases = append(cases, QueryTestCase{
			Query:           tp.query,
			ExpectedSources: byTopic[tp.name],
			Exhaustive:      len(byTopic[tp.name]) <= 5,
			Description:     "topic " + tp.name,
		})
	}
	return cases
}

// WriteTo writes every document into dir, creating it if needed.
func (c *Corpus) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, d := range c.Documents {
		content, err := WriteMinimalFile(d.Ext, d.Content)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Source, err)
		}
		if err := os.WriteFile(filepath.Join(dir, d.Source), content, 0644); err != nil {
			return err
		}
	}
	return nil
}

// containsKeywords reports whether every word of query occurs in the document text.
func containsKeywords(doc StudyDocument, query string) bool {
	text := strings.ToLower(doc.Content)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
