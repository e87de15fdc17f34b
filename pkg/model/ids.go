package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// id patterns are fixed per kind: task-<int>, doc-<int>, decision-<int>
var idRe = regexp.MustCompile(`^(task|doc|decision)-([0-9]+)$`)

var prefixByKind = map[Kind]string{
	KindTask:     "task",
	KindDocument: "doc",
	KindDecision: "decision",
}

var kindByPrefix = map[string]Kind{
	"task":     KindTask,
	"doc":      KindDocument,
	"decision": KindDecision,
}

// FormatID builds the canonical id for a kind and an integer suffix
func FormatID(k Kind, n int) string {
	return fmt.Sprintf("%s-%d", prefixByKind[k], n)
}

// KindOfID tells which kind an id belongs to, if it is well formed
func KindOfID(id string) (Kind, bool) {
	m := idRe.FindStringSubmatch(id)
	if m == nil {
		return "", false
	}
	return kindByPrefix[m[1]], true
}

// IDSuffix extracts the integer suffix of a well-formed id, -1 otherwise
func IDSuffix(id string) int {
	m := idRe.FindStringSubmatch(id)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return -1
	}
	return n
}

// CompareIDs orders ids by kind prefix, then numerically by suffix, so that
// task-2 sorts before task-10. Malformed ids fall back to plain string order.
func CompareIDs(a, b string) int {
	ma := idRe.FindStringSubmatch(a)
	mb := idRe.FindStringSubmatch(b)
	if ma == nil || mb == nil {
		return strings.Compare(a, b)
	}
	if c := strings.Compare(ma[1], mb[1]); c != 0 {
		return c
	}
	na, _ := strconv.Atoi(ma[2])
	nb, _ := strconv.Atoi(mb[2])
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}
