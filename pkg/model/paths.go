package model

import (
	"fmt"
	"strings"
)

const recordExtension = ".md"

func getPathToRecords() string {
	return fmt.Sprint("records/")
}

// GetPathPrefixToRecords yields the store key prefix under which all record
// files live
func GetPathPrefixToRecords() string {
	return getPathToRecords()
}

// GetPathToRecord yields the store key of a record file
func GetPathToRecord(id string) string {
	return fmt.Sprint(getPathToRecords(), id, recordExtension)
}

// GetRecordIDFromPath extracts the record id from a store key, or "" when
// the key does not denote a record file
func GetRecordIDFromPath(path string) string {
	if !strings.HasPrefix(path, getPathToRecords()) {
		return ""
	}
	name := strings.TrimPrefix(path, getPathToRecords())
	if !strings.HasSuffix(name, recordExtension) || strings.Contains(name, "/") {
		return ""
	}
	id := strings.TrimSuffix(name, recordExtension)
	if _, ok := KindOfID(id); !ok {
		return ""
	}
	return id
}
