package activity

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"api/internal/models"

	"github.com/blevesearch/bleve/v2"
)

func newTestFilesystemClient(t *testing.T) *FilesystemClient {
	t.Helper()
	dir := t.TempDir()
	config := models.ActivityConfiguration{
		Type: "filesystem",
		Filesystem: &models.FilesystemActivityConfiguration{
			Directory: dir,
		},
	}
	client := NewFilesystemClient(config).(*FilesystemClient)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sendTestActivity(
	t *testing.T, client *FilesystemClient,
	action, userID, challengeID, message string, ts time.Time,
) {
	t.Helper()
	err := client.Send(models.Activity{
		Message: message,
		Filter: map[string]string{
			"action":       action,
			"realm":        "master",
			"user_id":      userID,
			"email":        "jo@example.com",
			"challenge_id": challengeID,
			"timestamp":    strconv.FormatInt(ts.UnixNano(), 10),
		},
		Object: map[string]any{"name": "test-object"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestFilesystemSendAndSearch(t *testing.T) {
	client := newTestFilesystemClient(t)

	now := time.Now()
	sendTestActivity(
		t, client, "code_issued", "user-1", "challenge-1", "Issued sign-in code", now,
	)

	results, err := client.Search(map[string][]string{
		"action": {"code_issued"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r["action"] != "code_issued" {
		t.Errorf("expected action=code_issued, got %v", r["action"])
	}
	if r["user_id"] != "user-1" {
		t.Errorf("expected user_id=user-1, got %v", r["user_id"])
	}
	if r["message"] != "Issued sign-in code" {
		t.Errorf("expected message='Issued sign-in code', got %v", r["message"])
	}
	if r["realm"] != "master" {
		t.Errorf("expected realm=master, got %v", r["realm"])
	}

	// Verify timestamp is nanosecond string
	tsStr, ok := r["timestamp"].(string)
	if !ok {
		t.Fatal("timestamp should be a string")
	}
	if _, parseErr := strconv.ParseInt(tsStr, 10, 64); parseErr != nil {
		t.Errorf("timestamp should be parseable as int64: %v", parseErr)
	}

	// Verify object was stored and parsed back
	obj, ok := r["object"].(map[string]any)
	if !ok {
		t.Fatal("object should be a map")
	}
	if obj["name"] != "test-object" {
		t.Errorf("expected object.name=test-object, got %v", obj["name"])
	}
}

func TestFilesystemSearchWithORCriteria(t *testing.T) {
	client := newTestFilesystemClient(t)

	now := time.Now()
	sendTestActivity(
		t, client, "code_issued", "user-1", "challenge-1", "Issued sign-in code", now,
	)
	sendTestActivity(
		t, client, "code_resent", "user-1", "challenge-1", "Resent sign-in code", now.Add(-time.Second),
	)
	sendTestActivity(
		t, client, "challenge_succeeded", "user-2", "challenge-2", "Challenge succeeded", now.Add(-2*time.Second),
	)

	// Search with OR on action: issued OR resent
	results, err := client.Search(map[string][]string{
		"action": {"code_issued", "code_resent"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	actions := map[string]bool{}
	for _, r := range results {
		actions[r["action"].(string)] = true
	}
	if !actions["code_issued"] || !actions["code_resent"] {
		t.Errorf("expected code_issued and code_resent actions, got %v", actions)
	}
}

func TestFilesystemCountByDay(t *testing.T) {
	client := newTestFilesystemClient(t)

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	// 2 events today, 1 yesterday
	sendTestActivity(
		t, client, "code_issued", "user-1", "challenge-1", "Issued code 1", today,
	)
	sendTestActivity(
		t, client, "code_issued", "user-1", "challenge-2", "Issued code 2", today.Add(-time.Minute),
	)
	sendTestActivity(
		t, client, "invalid_code_attempt", "user-1", "challenge-3", "Invalid code", yesterday,
	)

	points, err := client.CountByDay(map[string][]string{}, 7)
	if err != nil {
		t.Fatalf("CountByDay failed: %v", err)
	}

	totalCount := 0
	for _, p := range points {
		totalCount += p.Count
	}

	if totalCount != 3 {
		t.Errorf("expected total count of 3, got %d (points: %+v)", totalCount, points)
	}
}

func TestFilesystemSearchRespectsTimeWindow(t *testing.T) {
	client := newTestFilesystemClient(t)

	// Index an event from 60 days ago (outside 30-day window)
	oldTime := time.Now().AddDate(0, 0, -60)
	sendTestActivity(
		t, client, "code_issued", "user-1", "challenge-old", "Old event", oldTime,
	)

	// Index a recent event
	sendTestActivity(
		t, client, "code_issued", "user-1", "challenge-new", "New event", time.Now(),
	)

	results, err := client.Search(map[string][]string{
		"action": {"code_issued"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result (only recent), got %d", len(results))
	}

	if results[0]["challenge_id"] != "challenge-new" {
		t.Errorf("expected challenge_id=challenge-new, got %v", results[0]["challenge_id"])
	}
}

func TestFilesystemMigrateIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "activity.bleve")

	// Create an index with an old schema version.
	indexMapping := buildIndexMapping()
	index, err := bleve.New(dir, indexMapping)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	// Set an old version to trigger migration.
	err = index.SetInternal(schemaVersionKey, []byte("0"))
	if err != nil {
		t.Fatalf("failed to set schema version: %v", err)
	}

	// Index some test documents.
	now := time.Now()
	docs := []FilesystemActivityEntry{
		{
			Message:     "Issued sign-in code",
			Timestamp:   now,
			Action:      "code_issued",
			Realm:       "master",
			UserID:      "user-1",
			ChallengeID: "challenge-1",
			Object:      `{"name":"obj1"}`,
		},
		{
			Message:     "Challenge aborted",
			Timestamp:   now.Add(-time.Second),
			Action:      "challenge_aborted",
			Realm:       "master",
			UserID:      "user-2",
			ChallengeID: "challenge-2",
		},
	}
	for i, doc := range docs {
		err = index.Index(strconv.Itoa(i), doc)
		if err != nil {
			t.Fatalf("failed to index doc %d: %v", i, err)
		}
	}

	err = index.Close()
	if err != nil {
		t.Fatalf("failed to close index: %v", err)
	}

	// Open via NewFilesystemClient — should detect version mismatch and migrate.
	config := models.ActivityConfiguration{
		Type: "filesystem",
		Filesystem: &models.FilesystemActivityConfiguration{
			Directory: dir,
		},
	}
	client := NewFilesystemClient(config).(*FilesystemClient)
	t.Cleanup(func() { _ = client.Close() })

	// Verify schema version is updated.
	storedVersion, err := client.index.GetInternal(schemaVersionKey)
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if string(storedVersion) != schemaVersion {
		t.Errorf("expected schema version %s, got %s", schemaVersion, string(storedVersion))
	}

	// Verify all documents are searchable.
	results, err := client.Search(map[string][]string{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Both docs are recent so should appear within the 30-day window.
	if len(results) != 2 {
		t.Fatalf("expected 2 results after migration, got %d", len(results))
	}

	// Verify specific fields survived the migration.
	found := map[string]bool{}
	for _, r := range results {
		found[r["action"].(string)] = true
	}
	if !found["code_issued"] || !found["challenge_aborted"] {
		t.Errorf("expected code_issued and challenge_aborted actions after migration, got %v", found)
	}
}
