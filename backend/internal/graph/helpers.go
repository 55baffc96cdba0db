package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"studyhub/backend/internal/state"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	return int(getInt64FromRecord(record, key))
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return time.Time{}
	}
	// Neo4j datetime values come as time.Time
	if t, ok := val.(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}

func recordToUser(record *neo4j.Record) state.User {
	return state.User{
		ID:       getStringFromRecord(record, "id"),
		Name:     getStringFromRecord(record, "name"),
		Bio:      getStringFromRecord(record, "bio"),
		Location: getStringFromRecord(record, "location"),
		Avatar:   getStringFromRecord(record, "avatar"),
	}
}

func recordToGroup(record *neo4j.Record) state.Group {
	return state.Group{
		ID:          getStringFromRecord(record, "id"),
		Name:        getStringFromRecord(record, "name"),
		Description: getStringFromRecord(record, "description"),
	}
}

func recordToMembership(record *neo4j.Record) state.Membership {
	return state.Membership{
		UserID:  getStringFromRecord(record, "user_id"),
		GroupID: getStringFromRecord(record, "group_id"),
		Role:    state.Role(getStringFromRecord(record, "role")),
		Points:  getInt64FromRecord(record, "points"),
	}
}

// nonNil keeps Cypher list parameters from being sent as null
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
