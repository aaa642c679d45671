package content

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ItemType distinguishes containers from content-bearing leaves
type ItemType string

const (
	ItemFolder ItemType = "folder"
	ItemFile   ItemType = "file"
)

// StructureItem is a node of a course's note structure.
// OrderIndex orders siblings sharing the same ParentID.
type StructureItem struct {
	ID         string           `json:"id" db:"id"`
	CourseID   string           `json:"course_id" db:"course_id"`
	ParentID   *string          `json:"parent_id" db:"parent_id"` // NULL = root level
	ItemType   ItemType         `json:"item_type" db:"item_type"`
	Title      string           `json:"title" db:"title"`
	OrderIndex int              `json:"order_index" db:"order_index"`
	CreatedAt  time.Time        `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at,omitempty" db:"updated_at"`
	Children   []*StructureItem `json:"children,omitempty"`
}

// Structure item columns
const (
	ColumnID         = "id"
	ColumnCourseID   = "course_id"
	ColumnParentID   = "parent_id"
	ColumnItemType   = "item_type"
	ColumnTitle      = "title"
	ColumnOrderIndex = "order_index"
	ColumnContent    = "content"
	ColumnCreatedAt  = "created_at"
	ColumnUpdatedAt  = "updated_at"
)

// StructureItemFromFields builds an item from a persisted row or change data
func StructureItemFromFields(f Fields) StructureItem {
	var item StructureItem
	item.ApplyFields(f)
	return item
}

// ApplyFields shallow-merges known columns into the item. Unknown keys are ignored.
func (it *StructureItem) ApplyFields(f Fields) {
	for key, value := range f {
		switch key {
		case ColumnID:
			it.ID = asString(value)
		case ColumnCourseID:
			it.CourseID = asString(value)
		case ColumnParentID:
			it.ParentID = asOptionalString(value)
		case ColumnItemType:
			it.ItemType = ItemType(asString(value))
		case ColumnTitle:
			it.Title = asString(value)
		case ColumnOrderIndex:
			it.OrderIndex = asInt(value)
		case ColumnCreatedAt:
			if t, ok := value.(time.Time); ok {
				it.CreatedAt = t
			}
		case ColumnUpdatedAt:
			if t, ok := value.(time.Time); ok {
				it.UpdatedAt = t
			}
		}
	}
}

// Fields returns the persisted columns of the item
func (it StructureItem) Fields() Fields {
	f := Fields{
		ColumnID:         it.ID,
		ColumnCourseID:   it.CourseID,
		ColumnItemType:   string(it.ItemType),
		ColumnTitle:      it.Title,
		ColumnOrderIndex: it.OrderIndex,
	}
	if it.ParentID != nil {
		f[ColumnParentID] = *it.ParentID
	} else {
		f[ColumnParentID] = nil
	}
	return f
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func asOptionalString(v interface{}) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case *string:
		if s == nil || *s == "" {
			return nil
		}
		cp := *s
		return &cp
	default:
		str := asString(s)
		if str == "" {
			return nil
		}
		return &str
	}
}

// asInt accepts the numeric shapes produced by JSON decoding and database drivers
func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(math.Round(n))
	case float32:
		return int(math.Round(float64(n)))
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
