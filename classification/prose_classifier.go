package classification

import (
	"log"

	"github.com/jdkato/prose/v2"
)

// ProseClassifier классификатор наименований на основе NER-модели prose:
// сегментация, морфология и распознавание именованных сущностей.
type ProseClassifier struct{}

// NewProseClassifier создает NER-классификатор.
func NewProseClassifier() *ProseClassifier {
	return &ProseClassifier{}
}

// Classify прогоняет текст через NER-пайплайн. Если найден спан типа
// PERSON - это человек; спаны GPE/ORG трактуются как организация.
func (c *ProseClassifier) Classify(text string) (EntityType, bool) {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		log.Printf("prose classifier failed on %q: %v", text, err)
		return EntityOrganization, false
	}

	sawOrganization := false
	for _, ent := range doc.Entities() {
		switch ent.Label {
		case "PERSON":
			return EntityPerson, true
		case "GPE", "ORG":
			sawOrganization = true
		}
	}

	if sawOrganization {
		return EntityOrganization, true
	}
	return EntityOrganization, false
}
