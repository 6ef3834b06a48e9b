package models

import "time"

// Task is a todo item. OwnerID is set at creation and never changes.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:varchar(1000);not null;default:''"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
	OwnerID     string    `json:"owner" gorm:"type:varchar(36);not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPatch holds the fields of a selective update. Nil means "leave unchanged".
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Fields returns the changed columns keyed by column name.
func (p TaskPatch) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Completed != nil {
		fields["completed"] = *p.Completed
	}
	return fields
}

// Apply copies the patched fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
