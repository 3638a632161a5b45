package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubClassifier фиксированный ответ плюс счетчик вызовов для проверки кэша.
type stubClassifier struct {
	result EntityType
	ok     bool
	calls  int
}

func (s *stubClassifier) Classify(text string) (EntityType, bool) {
	s.calls++
	return s.result, s.ok
}

func TestDetectTypeOrgTokens(t *testing.T) {
	d := NewDetector(nil, 0)

	orgs := []string{
		`ООО "Ромашка"`,
		"Федеральное государственное бюджетное учреждение науки Институт проблем",
		"Acme Technologies LLC",
		"Московский завод имени Лихачева",
		"АО НПО Энергомаш",
	}
	for _, name := range orgs {
		assert.Equal(t, EntityOrganization, d.DetectType(name), "name: %s", name)
	}
}

func TestDetectTypePersonHeuristic(t *testing.T) {
	d := NewDetector(nil, 0)

	persons := []string{
		"Иванов Иван Иванович",
		"Иванов И.И.",
		"Петрова Мария",
		"Jan van Berg",
	}
	for _, name := range persons {
		assert.Equal(t, EntityPerson, d.DetectType(name), "name: %s", name)
	}
}

func TestDetectTypeShortAndAmbiguous(t *testing.T) {
	d := NewDetector(nil, 0)

	// Строки короче двух символов - всегда организация
	assert.Equal(t, EntityOrganization, d.DetectType(""))
	assert.Equal(t, EntityOrganization, d.DetectType("А"))

	// Одно слово не проходит структурную эвристику
	assert.Equal(t, EntityOrganization, d.DetectType("Ромашка"))

	// Слишком много слов
	assert.Equal(t, EntityOrganization, d.DetectType("научно исследовательская группа прикладной физики твердого тела"))
}

func TestDetectTypeClassifierPriority(t *testing.T) {
	stub := &stubClassifier{result: EntityPerson, ok: true}
	d := NewDetector(stub, 0)

	// Классификатор перекрывает структурную эвристику
	assert.Equal(t, EntityPerson, d.DetectType("одно_слово_без_маркеров"))
	assert.Equal(t, 1, stub.calls)

	// Маркер организации срабатывает ДО классификатора
	assert.Equal(t, EntityOrganization, d.DetectType(`ООО "Ромашка"`))
	assert.Equal(t, 1, stub.calls)
}

func TestDetectTypeClassifierFallthrough(t *testing.T) {
	// Неуверенный ответ классификатора отбрасывается, работают эвристики
	stub := &stubClassifier{result: EntityPerson, ok: false}
	d := NewDetector(stub, 0)

	assert.Equal(t, EntityPerson, d.DetectType("Иванов Иван Иванович"))
	assert.Equal(t, EntityOrganization, d.DetectType("ромашка плюс сервис"))
}

func TestDetectTypeCache(t *testing.T) {
	stub := &stubClassifier{result: EntityPerson, ok: true}
	d := NewDetector(stub, 10)

	d.DetectType("Иванов Иван Иванович")
	d.DetectType("Иванов Иван Иванович")
	d.DetectType("Иванов Иван Иванович")

	assert.Equal(t, 1, stub.calls, "classifier must be called once per unique string")
	assert.Equal(t, 1, d.CacheLen())
}

func TestDetectTypeCacheEviction(t *testing.T) {
	d := NewDetector(nil, 3)

	names := []string{"Иванов Иван", "Петров Петр", "Сидоров Сидор", "Кузнецов Кузьма"}
	for _, name := range names {
		d.DetectType(name)
	}

	assert.Equal(t, 3, d.CacheLen(), "cache must stay within its bound")
}

func TestDetectTypeBatch(t *testing.T) {
	stub := &stubClassifier{result: EntityOrganization, ok: true}
	d := NewDetector(stub, 0)

	results := d.DetectTypeBatch([]string{
		"Иванов Иван Иванович",
		`ООО "Ромашка"`,
		"Иванов Иван Иванович",
	})

	assert.Len(t, results, 2)
	assert.Equal(t, EntityOrganization, results[`ООО "Ромашка"`])
}

func TestEntityTypeString(t *testing.T) {
	assert.Equal(t, "organization", EntityOrganization.String())
	assert.Equal(t, "person", EntityPerson.String())
}
