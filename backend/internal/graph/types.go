package graph

// ============================================================================
// Graph Schema
// ============================================================================
//
//	(:User {id, name, bio, location, avatar, graph_version})
//	(:User)-[:FOLLOWS {created_at}]->(:User)
//	(:Friendship {user_id1, user_id2, created_at})    user_id1 < user_id2
//	(:StudyGroup {id, name, description})
//	(:User)-[:MEMBER_OF {role, points}]->(:StudyGroup)
//	(:User)-[:REQUESTED_JOIN {status}]->(:StudyGroup)
//	(:OutboxEvent {id, type, payload, created_at, dispatched_at})
//
// graph_version is bumped by every follow write so the two user nodes are
// write-locked for the rest of the transaction.

// schemaStatements are applied one by one by EnsureSchema
var schemaStatements = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT study_group_id_unique IF NOT EXISTS FOR (g:StudyGroup) REQUIRE g.id IS UNIQUE`,
	`CREATE CONSTRAINT outbox_event_id_unique IF NOT EXISTS FOR (e:OutboxEvent) REQUIRE e.id IS UNIQUE`,
	`CREATE CONSTRAINT friendship_pair_unique IF NOT EXISTS FOR (f:Friendship) REQUIRE (f.user_id1, f.user_id2) IS UNIQUE`,
	`CREATE INDEX friendship_user_id2 IF NOT EXISTS FOR (f:Friendship) ON (f.user_id2)`,
	`CREATE INDEX outbox_event_created_at IF NOT EXISTS FOR (e:OutboxEvent) ON (e.created_at)`,
}

// userColumns projects a (u:User) match onto the columns recordToUser reads
const userColumns = `u.id AS id, u.name AS name, u.bio AS bio, u.location AS location, u.avatar AS avatar`

// membershipColumns projects (u)-[m:MEMBER_OF]->(g) onto recordToMembership
const membershipColumns = `u.id AS user_id, g.id AS group_id, m.role AS role, m.points AS points`

// groupColumns projects a (g:StudyGroup) match onto recordToGroup
const groupColumns = `g.id AS id, g.name AS name, g.description AS description`
