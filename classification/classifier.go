package classification

// EntityType тип сущности, которой принадлежит текстовое наименование.
type EntityType int

const (
	EntityOrganization EntityType = iota
	EntityPerson
)

// String возвращает строковое представление типа сущности.
func (t EntityType) String() string {
	if t == EntityPerson {
		return "person"
	}
	return "organization"
}

// NameClassifier внешний классификатор наименований (NER-модель).
// Реализация может отсутствовать: детектор обязан работать и на одних
// эвристиках, поэтому классификатор подключается через интерфейс.
type NameClassifier interface {
	// Classify возвращает тип сущности и признак уверенного ответа.
	// ok=false означает "модель не нашла именованных сущностей" -
	// детектор переходит к структурной эвристике.
	Classify(text string) (EntityType, bool)
}
