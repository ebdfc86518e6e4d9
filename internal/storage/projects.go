package storage

import (
	"encoding/json"
	"fmt"

	"go-site-builder/internal/model"
)

// ProjectsCollection holds one document per project.
const ProjectsCollection = "projects"

// ProjectDocument converts a project into its stored form. The id is carried
// by the store, not the body.
func ProjectDocument(p *model.Project) (Document, error) {
	doc, err := normalize(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project %s: %w", p.ID, err)
	}
	delete(doc, "id")
	return doc, nil
}

// PagesPatch is the partial update written after every page edit: the whole page
// list plus the new modification time.
func PagesPatch(pages []*model.Page, updatedAt int64) Document {
	return Document{"pages": pages, "updatedAt": updatedAt}
}

// DecodeProject converts a stored document back into a project.
func DecodeProject(doc Document) (*model.Project, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project document: %w", err)
	}
	var p model.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode project document: %w", err)
	}
	if p.Assets == nil {
		p.Assets = []model.Asset{}
	}
	return &p, nil
}
