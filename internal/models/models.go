package models

import (
	"encoding/json"
	"strings"
)

// ProjectDraft is the in-progress project being designed. It has no identity
// until it is promoted into the pocket.
type ProjectDraft struct {
	Type        Choice
	Category    Choice
	Timeline    string
	Idea        string
	RefinedIdea string
}

// HasDistinctRefinement reports whether RefinedIdea carries content that is
// not already the idea itself.
func (d ProjectDraft) HasDistinctRefinement() bool {
	return strings.TrimSpace(d.RefinedIdea) != "" && d.RefinedIdea != d.Idea
}

// ProjectItem is a completed project held in the pocket.
type ProjectItem struct {
	ID string
	ProjectDraft
}

// projectRecord is the persisted layout shared by drafts and pocket items.
type projectRecord struct {
	ID                   string `json:"id,omitempty"`
	ProjectType          string `json:"projectType"`
	ProjectTypeOther     string `json:"projectTypeOther,omitempty"`
	ProjectCategory      string `json:"projectCategory"`
	ProjectCategoryOther string `json:"projectCategoryOther,omitempty"`
	Timeline             string `json:"timeline"`
	Idea                 string `json:"idea"`
	RefinedIdea          string `json:"refinedIdea,omitempty"`
}

func recordOf(id string, d ProjectDraft) projectRecord {
	return projectRecord{
		ID:                   id,
		ProjectType:          d.Type.ID,
		ProjectTypeOther:     d.Type.OtherText(),
		ProjectCategory:      d.Category.ID,
		ProjectCategoryOther: d.Category.OtherText(),
		Timeline:             d.Timeline,
		Idea:                 d.Idea,
		RefinedIdea:          d.RefinedIdea,
	}
}

func (r projectRecord) draft() ProjectDraft {
	return ProjectDraft{
		Type:        Pick(r.ProjectType).WithOther(r.ProjectTypeOther),
		Category:    Pick(r.ProjectCategory).WithOther(r.ProjectCategoryOther),
		Timeline:    r.Timeline,
		Idea:        r.Idea,
		RefinedIdea: r.RefinedIdea,
	}
}

func (d ProjectDraft) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordOf("", d))
}

func (d *ProjectDraft) UnmarshalJSON(data []byte) error {
	var r projectRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*d = r.draft()
	return nil
}

func (p ProjectItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordOf(p.ID, p.ProjectDraft))
}

func (p *ProjectItem) UnmarshalJSON(data []byte) error {
	var r projectRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	p.ID = r.ID
	p.ProjectDraft = r.draft()
	return nil
}
