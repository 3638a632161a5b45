package resolver

import (
	"fmt"
	"strings"

	"ipregistry/database"
	"ipregistry/normalization"
)

// NameParts кортеж имени человека. Это единственный ключ идентичности:
// два разных человека с одинаковым ФИО неизбежно схлопнутся в одну запись.
// Ограничение принято осознанно - надежного идентификатора в выгрузках нет.
type NameParts struct {
	LastName   string
	FirstName  string
	MiddleName string
}

// SplitPersonName разбивает строку ФИО на кортеж. Российские реестры
// пишут фамилию первой; все слова после второго считаются отчеством.
func SplitPersonName(fullName string) NameParts {
	words := strings.Fields(strings.TrimSpace(fullName))
	parts := NameParts{}
	switch {
	case len(words) == 0:
	case len(words) == 1:
		parts.LastName = words[0]
	case len(words) == 2:
		parts.LastName = words[0]
		parts.FirstName = words[1]
	default:
		parts.LastName = words[0]
		parts.FirstName = words[1]
		parts.MiddleName = strings.Join(words[2:], " ")
	}
	return parts
}

// FindOrCreatePerson возвращает существующую или новую запись человека.
// Повторный вызов с тем же именем внутри запуска возвращает ту же запись:
// не больше одного создания на идентичность.
func (ctx *Context) FindOrCreatePerson(rawName string) (*database.Person, error) {
	fullName := normalization.CleanString(rawName)
	if fullName == "" {
		return nil, fmt.Errorf("empty person name")
	}

	if cached, ok := ctx.personsByName[fullName]; ok {
		return cached, nil
	}

	parts := SplitPersonName(fullName)
	person, err := ctx.db.FindPersonByNameTuple(parts.LastName, parts.FirstName, parts.MiddleName)
	if err != nil {
		return nil, err
	}
	if person == nil {
		person, err = ctx.db.FindPersonByFullName(fullName)
		if err != nil {
			return nil, err
		}
	}

	if person == nil {
		person, err = ctx.createPerson(fullName, parts)
		if err != nil {
			return nil, err
		}
	}

	ctx.personsByName[fullName] = person
	return person, nil
}

func (ctx *Context) createPerson(fullName string, parts NameParts) (*database.Person, error) {
	slug, err := ctx.uniquePersonSlug(normalization.Slugify(fullName))
	if err != nil {
		return nil, fmt.Errorf("failed to build person slug: %w", err)
	}

	person := &database.Person{
		ID:         ctx.allocPersonID(),
		FullName:   fullName,
		LastName:   parts.LastName,
		FirstName:  parts.FirstName,
		MiddleName: parts.MiddleName,
		Slug:       slug,
	}

	if !ctx.dryRun {
		if err := ctx.db.InsertPerson(person); err != nil {
			return nil, err
		}
	}

	return person, nil
}
