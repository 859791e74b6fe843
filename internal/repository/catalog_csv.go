package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Likith-04/Tibl.ai/internal/scheduler"
	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
)

var (
	slugStrip = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugSpace = regexp.MustCompile(`\s+`)
)

// Accepted header spellings, matched case-insensitively.
var (
	branchHeaders  = []string{"branch"}
	kindHeaders    = []string{"subject type", "type"}
	nameHeaders    = []string{"subject name", "name"}
	codeHeaders    = []string{"code"}
	teacherHeaders = []string{"teacher_id", "teacher", "teacher id"}
	creditHeaders  = []string{"credits"}
)

// CSVCatalogSource reads subjects and teachers from CSV files.
type CSVCatalogSource struct {
	subjectsPath string
	teachersPath string
}

// NewCSVCatalogSource constructs a file-backed catalog source. The teachers file is optional.
func NewCSVCatalogSource(subjectsPath, teachersPath string) *CSVCatalogSource {
	return &CSVCatalogSource{subjectsPath: subjectsPath, teachersPath: teachersPath}
}

// Load reads both files on every call so edits are picked up without a restart.
func (s *CSVCatalogSource) Load(_ context.Context) (scheduler.Catalog, error) {
	subjectsFile, err := os.Open(s.subjectsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return scheduler.Catalog{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subjects file %s not found", s.subjectsPath))
		}
		return scheduler.Catalog{}, fmt.Errorf("open subjects file: %w", err)
	}
	defer subjectsFile.Close() //nolint:errcheck

	subjects, err := ParseSubjectsCSV(subjectsFile)
	if err != nil {
		return scheduler.Catalog{}, err
	}

	var teachers []scheduler.Teacher
	if s.teachersPath != "" {
		teachersFile, err := os.Open(s.teachersPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return scheduler.Catalog{}, fmt.Errorf("open teachers file: %w", err)
		default:
			defer teachersFile.Close() //nolint:errcheck
			teachers, err = ParseTeachersCSV(teachersFile)
			if err != nil {
				return scheduler.Catalog{}, err
			}
		}
	}

	return scheduler.Catalog{Subjects: subjects, Teachers: teachers}, nil
}

// ParseSubjectsCSV reads a subjects file. Missing codes are generated per branch as
// BRANCH_SLUG_n; missing or invalid credits default by kind. A repeated code replaces the
// earlier row in place.
func ParseSubjectsCSV(r io.Reader) ([]scheduler.Subject, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := headerIndex(records[0])
	branchCol := header.find(branchHeaders...)
	kindCol := header.find(kindHeaders...)
	nameCol := header.find(nameHeaders...)
	codeCol := header.find(codeHeaders...)
	teacherCol := header.find(teacherHeaders...)
	creditCol := header.find(creditHeaders...)

	var subjects []scheduler.Subject
	position := make(map[string]int)
	counters := make(map[string]int)
	for line, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		branch := strings.ToUpper(field(record, branchCol))
		rawKind := "Theory"
		if kindCol >= 0 {
			rawKind = titleCase(field(record, kindCol))
		}
		name := field(record, nameCol)

		code := strings.ToUpper(field(record, codeCol))
		if code == "" {
			counters[branch]++
			code = fmt.Sprintf("%s_%s_%d", branch, truncate(slugify(name), 20), counters[branch])
		}

		credits, ok := parseCredits(field(record, creditCol))
		if !ok {
			credits = defaultCredits(rawKind)
		}

		subject := scheduler.Subject{
			Code:      code,
			Name:      name,
			Branch:    branch,
			Kind:      scheduler.ParseSubjectKind(rawKind),
			TeacherID: field(record, teacherCol),
			Credits:   credits,
		}
		if subject.Branch == "" {
			return nil, appErrors.Clone(appErrors.ErrCatalogFormat, fmt.Sprintf("subjects row %d has no branch", line+2))
		}
		if i, seen := position[code]; seen {
			subjects[i] = subject
			continue
		}
		position[code] = len(subjects)
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// ParseTeachersCSV reads id and name columns, or the first two columns when those headers are absent.
func ParseTeachersCSV(r io.Reader) ([]scheduler.Teacher, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := headerIndex(records[0])
	idCol, nameCol := header.find("id"), header.find("name")
	if idCol < 0 || nameCol < 0 {
		if len(records[0]) < 2 {
			return nil, appErrors.Clone(appErrors.ErrCatalogFormat, "teachers file needs id and name columns")
		}
		idCol, nameCol = 0, 1
	}

	teachers := make([]scheduler.Teacher, 0, len(records)-1)
	for _, record := range records[1:] {
		id := field(record, idCol)
		if id == "" {
			continue
		}
		teachers = append(teachers, scheduler.Teacher{ID: id, Name: field(record, nameCol)})
	}
	return teachers, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCatalogFormat.Code, appErrors.ErrCatalogFormat.Status, "catalog csv is malformed")
	}
	return records, nil
}

type headerIndex []string

func (h headerIndex) find(names ...string) int {
	for _, name := range names {
		for i, col := range h {
			if strings.EqualFold(strings.TrimSpace(col), name) {
				return i
			}
		}
	}
	return -1
}

func field(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseCredits accepts whole numbers only. Negative counts clamp to one weekly
// session; anything else non-integral falls back to the kind default.
func parseCredits(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n < 0 {
		return 1, true
	}
	return n, true
}

func defaultCredits(kind string) int {
	switch strings.ToLower(kind) {
	case "theory":
		return 4
	case "project":
		return 2
	case "lab":
		return 0
	default:
		return 3
	}
}

func slugify(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "_")
	return truncate(s, 40)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
