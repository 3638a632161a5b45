package resolver

import (
	"fmt"

	"ipregistry/database"
	"ipregistry/normalization"
)

// FindOrCreateOrganization возвращает существующую или новую организацию.
// Поиск многоступенчатый: точное совпадение, пересечение ключевых слов,
// префикс нормальной формы, значимое слово. Первая ступень с результатом
// выигрывает. При создании название сохраняется дословно, без подмены
// нормализованной формой.
func (ctx *Context) FindOrCreateOrganization(rawName string) (*database.Organization, error) {
	name := normalization.CleanString(rawName)
	if name == "" {
		return nil, fmt.Errorf("empty organization name")
	}

	if cached, ok := ctx.orgsByName[name]; ok {
		return cached, nil
	}

	org, err := ctx.findOrganizationMatch(name)
	if err != nil {
		return nil, err
	}

	if org == nil {
		org, err = ctx.createOrganization(name)
		if err != nil {
			return nil, err
		}
	}

	ctx.orgsByName[name] = org
	return org, nil
}

// findOrganizationMatch ищет существующую организацию, не создавая новой.
func (ctx *Context) findOrganizationMatch(name string) (*database.Organization, error) {
	// Ступень 1: точное совпадение с любым из хранимых названий
	org, err := ctx.db.FindOrganizationExact(name)
	if err != nil || org != nil {
		return org, err
	}

	// Ступень 2: пересечение по ключевым словам - кавычечные названия,
	// аббревиатуры, коды ИНН/ОГРН
	for _, keyword := range normalization.ExtractSearchKeywords(name) {
		candidates, err := ctx.db.SearchOrganizationsByKeyword(keyword, 5)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates[0], nil
		}
	}

	// Ступень 3: совпадение первых 30 символов нормальной формы
	prefix := orgNamePrefix(name)
	if prefix != "" {
		if err := ctx.buildOrgPrefixIndex(); err != nil {
			return nil, err
		}
		if org, ok := ctx.orgPrefixIndex[prefix]; ok {
			return org, nil
		}
	}

	// Ступень 4: одно значимое слово (длиннее четырех символов) как подстрока
	for _, word := range normalization.SignificantWords(name) {
		candidates, err := ctx.db.SearchOrganizationsByKeyword(word, 5)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates[0], nil
		}
	}

	return nil, nil
}

func (ctx *Context) createOrganization(name string) (*database.Organization, error) {
	slug, err := ctx.uniqueOrgSlug(normalization.Slugify(name))
	if err != nil {
		return nil, fmt.Errorf("failed to build organization slug: %w", err)
	}

	org := &database.Organization{
		ID:       ctx.allocOrgID(),
		Name:     name,
		FullName: name,
		Slug:     slug,
	}

	if !ctx.dryRun {
		if err := ctx.db.InsertOrganization(org); err != nil {
			return nil, err
		}
	}

	// Новая организация попадает в префиксный индекс, если он уже построен
	if ctx.orgPrefixIndex != nil {
		if prefix := orgNamePrefix(name); prefix != "" {
			if _, exists := ctx.orgPrefixIndex[prefix]; !exists {
				ctx.orgPrefixIndex[prefix] = org
			}
		}
	}

	return org, nil
}
