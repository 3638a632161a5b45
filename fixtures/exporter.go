// Package fixtures выгружает содержимое реестра в JSON-фикстуры.
// Файлы пишутся в фиксированном порядке загрузки: сущности, на которые
// ссылаются, раньше ссылающихся (люди и организации раньше объектов ИС).
package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ipregistry/database"
)

// loadOrder порядок загрузки фикстур. Менять нельзя: объекты ИС
// ссылаются на людей и организации по id.
var loadOrder = []string{
	"persons.json",
	"organizations.json",
	"ip_objects.json",
}

// personFixture сериализованный человек.
type personFixture struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name"`
	LastName   string `json:"last_name,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	Slug       string `json:"slug"`
}

// organizationFixture сериализованная организация.
type organizationFixture struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	FullName  string `json:"full_name,omitempty"`
	ShortName string `json:"short_name,omitempty"`
	Slug      string `json:"slug"`
}

// ipObjectFixture сериализованный объект ИС со ссылками на сущности.
type ipObjectFixture struct {
	ID                 int64   `json:"id"`
	IPType             string  `json:"ip_type"`
	RegistrationNumber string  `json:"registration_number"`
	Name               string  `json:"name,omitempty"`
	RegistrationDate   string  `json:"registration_date,omitempty"`
	Actual             bool    `json:"actual"`
	AuthorIDs          []int64 `json:"author_ids,omitempty"`
	HolderPersonIDs    []int64 `json:"holder_person_ids,omitempty"`
	HolderOrgIDs       []int64 `json:"holder_org_ids,omitempty"`
}

// manifest описывает выгруженные файлы и порядок их загрузки.
type manifest struct {
	ExportedAt time.Time `json:"exported_at"`
	LoadOrder  []string  `json:"load_order"`
}

// Exporter выгружает фикстуры реестра.
type Exporter struct {
	db     *database.RegistryDB
	outDir string
}

// NewExporter создает выгрузчик фикстур в каталог outDir.
func NewExporter(db *database.RegistryDB, outDir string) *Exporter {
	return &Exporter{db: db, outDir: outDir}
}

// Export пишет все фикстуры и манифест с порядком загрузки.
func (e *Exporter) Export() error {
	if err := os.MkdirAll(e.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}

	if err := e.exportPersons(); err != nil {
		return err
	}
	if err := e.exportOrganizations(); err != nil {
		return err
	}
	if err := e.exportIPObjects(); err != nil {
		return err
	}

	return e.writeJSON("manifest.json", manifest{
		ExportedAt: time.Now().UTC(),
		LoadOrder:  loadOrder,
	})
}

func (e *Exporter) exportPersons() error {
	rows, err := e.db.GetConnection().Query(
		`SELECT id, full_name, last_name, first_name, middle_name, slug FROM persons ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var persons []personFixture
	for rows.Next() {
		var p personFixture
		if err := rows.Scan(&p.ID, &p.FullName, &p.LastName, &p.FirstName, &p.MiddleName, &p.Slug); err != nil {
			return fmt.Errorf("failed to scan person fixture: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return e.writeJSON("persons.json", persons)
}

func (e *Exporter) exportOrganizations() error {
	orgs, err := e.db.AllOrganizations()
	if err != nil {
		return err
	}

	fixtures := make([]organizationFixture, 0, len(orgs))
	for _, org := range orgs {
		fixtures = append(fixtures, organizationFixture{
			ID:        org.ID,
			Name:      org.Name,
			FullName:  org.FullName,
			ShortName: org.ShortName,
			Slug:      org.Slug,
		})
	}

	return e.writeJSON("organizations.json", fixtures)
}

func (e *Exporter) exportIPObjects() error {
	rows, err := e.db.GetConnection().Query(
		`SELECT id, ip_type, registration_number, name, registration_date, actual
		 FROM ip_objects ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query ip objects: %w", err)
	}
	defer rows.Close()

	var objects []ipObjectFixture
	for rows.Next() {
		var obj ipObjectFixture
		var regDate *time.Time
		if err := rows.Scan(&obj.ID, &obj.IPType, &obj.RegistrationNumber, &obj.Name, &regDate, &obj.Actual); err != nil {
			return fmt.Errorf("failed to scan ip object fixture: %w", err)
		}
		if regDate != nil {
			obj.RegistrationDate = regDate.Format("2006-01-02")
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range objects {
		obj := &objects[i]
		if obj.AuthorIDs, err = e.db.RelationEntityIDs(database.RelationAuthors, obj.ID); err != nil {
			return err
		}
		if obj.HolderPersonIDs, err = e.db.RelationEntityIDs(database.RelationHolderPersons, obj.ID); err != nil {
			return err
		}
		if obj.HolderOrgIDs, err = e.db.RelationEntityIDs(database.RelationHolderOrgs, obj.ID); err != nil {
			return err
		}
	}

	return e.writeJSON("ip_objects.json", objects)
}

func (e *Exporter) writeJSON(name string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(e.outDir, name), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
