package resolver

import (
	"fmt"
	"sort"

	"ipregistry/database"
	"ipregistry/normalization"
)

const (
	// existsQueryChunk размер пачки имен в одном запросе существования
	existsQueryChunk = 100
	// bulkInsertChunk размер пачки строк в одной пакетной вставке
	bulkInsertChunk = 500
)

// ResolvePersonsBulk разрешает набор имен людей: существующие находятся
// пакетным запросом, остальные создаются пакетной вставкой. Конфликт
// пачки откатывается на построчную вставку с регенерацией id и слага.
func (ctx *Context) ResolvePersonsBulk(rawNames []string) (map[string]*database.Person, error) {
	result := make(map[string]*database.Person, len(rawNames))

	var missing []string
	seen := make(map[string]bool, len(rawNames))
	for _, raw := range rawNames {
		name := normalization.CleanString(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if cached, ok := ctx.personsByName[name]; ok {
			result[name] = cached
			continue
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)

	existing, err := ctx.db.FindPersonsByFullNames(missing, existsQueryChunk)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing persons: %w", err)
	}

	var toCreate []*database.Person
	for _, name := range missing {
		if person, ok := existing[name]; ok {
			ctx.personsByName[name] = person
			result[name] = person
			continue
		}

		// Повторная проверка по кортежу имени: полная строка могла
		// отличаться пробелами от уже сохраненной записи
		parts := SplitPersonName(name)
		person, err := ctx.db.FindPersonByNameTuple(parts.LastName, parts.FirstName, parts.MiddleName)
		if err != nil {
			return nil, err
		}
		if person != nil {
			ctx.personsByName[name] = person
			result[name] = person
			continue
		}

		slug, err := ctx.uniquePersonSlug(normalization.Slugify(name))
		if err != nil {
			return nil, fmt.Errorf("failed to build person slug: %w", err)
		}
		created := &database.Person{
			ID:         ctx.allocPersonID(),
			FullName:   name,
			LastName:   parts.LastName,
			FirstName:  parts.FirstName,
			MiddleName: parts.MiddleName,
			Slug:       slug,
		}
		toCreate = append(toCreate, created)
		ctx.personsByName[name] = created
		result[name] = created
	}

	if len(toCreate) > 0 && !ctx.dryRun {
		retry := func(p *database.Person) bool {
			// Гонка по id или слагу: выделяем новые и пробуем еще раз
			p.ID = ctx.allocPersonID()
			slug, err := ctx.uniquePersonSlug(p.Slug)
			if err != nil {
				return false
			}
			p.Slug = slug
			return true
		}
		if _, err := ctx.db.InsertPersonsBulk(toCreate, bulkInsertChunk, retry); err != nil {
			return nil, fmt.Errorf("failed to bulk insert persons: %w", err)
		}
	}

	return result, nil
}

// ResolveOrganizationsBulk разрешает набор названий организаций.
// Существующие находятся пакетным точным запросом; промахи проходят
// полный многоступенчатый поиск поштучно; настоящие новички создаются
// пакетной вставкой.
func (ctx *Context) ResolveOrganizationsBulk(rawNames []string) (map[string]*database.Organization, error) {
	result := make(map[string]*database.Organization, len(rawNames))

	var missing []string
	seen := make(map[string]bool, len(rawNames))
	for _, raw := range rawNames {
		name := normalization.CleanString(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if cached, ok := ctx.orgsByName[name]; ok {
			result[name] = cached
			continue
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)

	existing, err := ctx.db.FindOrganizationsByNames(missing, existsQueryChunk)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing organizations: %w", err)
	}

	var toCreate []*database.Organization
	for _, name := range missing {
		if org, ok := existing[name]; ok {
			ctx.orgsByName[name] = org
			result[name] = org
			continue
		}

		org, err := ctx.findOrganizationMatch(name)
		if err != nil {
			return nil, err
		}
		if org != nil {
			ctx.orgsByName[name] = org
			result[name] = org
			continue
		}

		slug, err := ctx.uniqueOrgSlug(normalization.Slugify(name))
		if err != nil {
			return nil, fmt.Errorf("failed to build organization slug: %w", err)
		}
		created := &database.Organization{
			ID:       ctx.allocOrgID(),
			Name:     name,
			FullName: name,
			Slug:     slug,
		}
		toCreate = append(toCreate, created)
		ctx.orgsByName[name] = created
		result[name] = created

		if ctx.orgPrefixIndex != nil {
			if prefix := orgNamePrefix(name); prefix != "" {
				if _, exists := ctx.orgPrefixIndex[prefix]; !exists {
					ctx.orgPrefixIndex[prefix] = created
				}
			}
		}
	}

	if len(toCreate) > 0 && !ctx.dryRun {
		retry := func(o *database.Organization) bool {
			o.ID = ctx.allocOrgID()
			slug, err := ctx.uniqueOrgSlug(o.Slug)
			if err != nil {
				return false
			}
			o.Slug = slug
			return true
		}
		if _, err := ctx.db.InsertOrganizationsBulk(toCreate, bulkInsertChunk, retry); err != nil {
			return nil, fmt.Errorf("failed to bulk insert organizations: %w", err)
		}
	}

	return result, nil
}
