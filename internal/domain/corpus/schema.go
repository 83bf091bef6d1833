package corpus

import "strings"

// Field is a logical corpus column.
type Field string

// Logical columns every dataset must carry.
const (
	FieldID        Field = "id"
	FieldContent   Field = "content"
	FieldTopic     Field = "topic"
	FieldEmbedding Field = "embedding"
)

// ColumnNames maps logical fields to the physical column names of a dataset.
type ColumnNames struct {
	ID        string
	Content   string
	Topic     string
	Embedding string
}

// DefaultColumnNames returns the column names of the original math-passages spreadsheet.
func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		ID:        "ID",
		Content:   "Nội dung",
		Topic:     "Chủ đề",
		Embedding: "Embedding_MathBERT",
	}
}

// Name returns the physical column name for a logical field.
func (c ColumnNames) Name(f Field) string {
	switch f {
	case FieldID:
		return c.ID
	case FieldContent:
		return c.Content
	case FieldTopic:
		return c.Topic
	case FieldEmbedding:
		return c.Embedding
	default:
		return ""
	}
}

// Schema records which logical fields a dataset actually provides.
type Schema struct {
	names   ColumnNames
	present map[Field]int
}

// NewSchema resolves logical fields against a header row. Matching ignores
// surrounding whitespace, since spreadsheet exports often pad header cells.
// The column index of each present field is kept for row extraction.
func NewSchema(names ColumnNames, header []string) Schema {
	present := make(map[Field]int, 4)
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, f := range requiredFields {
			if _, seen := present[f]; seen {
				continue
			}
			if h == names.Name(f) {
				present[f] = i
			}
		}
	}
	return Schema{names: names, present: present}
}

var requiredFields = []Field{FieldID, FieldContent, FieldTopic, FieldEmbedding}

// Index returns the header position of a field.
func (s Schema) Index(f Field) (int, bool) {
	i, ok := s.present[f]
	return i, ok
}

// MissingColumns lists the physical names of required columns absent from the header.
func (s Schema) MissingColumns() []string {
	var missing []string
	for _, f := range requiredFields {
		if _, ok := s.present[f]; !ok {
			missing = append(missing, s.names.Name(f))
		}
	}
	return missing
}

// RowFromCells extracts a RawRow from a positional record. Cells beyond the
// record length read as empty.
func (s Schema) RowFromCells(index int, cells []string) RawRow {
	get := func(f Field) string {
		i, ok := s.present[f]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return RawRow{
		Index:     index,
		ID:        get(FieldID),
		Content:   get(FieldContent),
		Topic:     get(FieldTopic),
		Embedding: get(FieldEmbedding),
	}
}
