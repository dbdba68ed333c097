package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automentor/backend/internal/domain/knowledge"
)

func testDocumentRecord(path string) *knowledge.DocumentRecord {
	return &knowledge.DocumentRecord{
		SourcePath:     path,
		SourceType:     knowledge.SourceTypePDF,
		ContentHash:    "abc123",
		ChunkCount:     12,
		FileMtime:      time.Now().Unix(),
		LastIngestedAt: time.Now().Unix(),
		Status:         knowledge.IngestStatusIngested,
	}
}

func TestDocumentRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	record := testDocumentRecord("/docs/manual.pdf")
	err := repo.SaveRecord(record)
	require.NoError(t, err)

	found, err := repo.GetRecord("/docs/manual.pdf")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, record.SourcePath, found.SourcePath)
	assert.Equal(t, knowledge.SourceTypePDF, found.SourceType)
	assert.Equal(t, record.ContentHash, found.ContentHash)
	assert.Equal(t, record.ChunkCount, found.ChunkCount)
	assert.Equal(t, knowledge.IngestStatusIngested, found.Status)
}

func TestDocumentRepository_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	found, err := repo.GetRecord("/docs/nonexistent.pdf")
	require.NoError(t, err)
	assert.Nil(t, found, "不存在的记录应返回 nil")
}

func TestDocumentRepository_SaveOverwrites(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	record := testDocumentRecord("/docs/manual.pdf")
	require.NoError(t, repo.SaveRecord(record))

	// 同一路径再次保存应覆盖
	record.ContentHash = "def456"
	record.ChunkCount = 20
	require.NoError(t, repo.SaveRecord(record))

	found, err := repo.GetRecord("/docs/manual.pdf")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "def456", found.ContentHash)
	assert.Equal(t, 20, found.ChunkCount)

	all, err := repo.ListRecords()
	require.NoError(t, err)
	assert.Len(t, all, 1, "覆盖保存不应产生重复记录")
}

func TestDocumentRepository_ListRecords(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	paths := []string{"/docs/b.txt", "/docs/a.pdf", "/docs/c.csv"}
	for _, p := range paths {
		record := testDocumentRecord(p)
		require.NoError(t, repo.SaveRecord(record))
	}

	all, err := repo.ListRecords()
	require.NoError(t, err)
	require.Len(t, all, 3)

	// 按路径排序
	assert.Equal(t, "/docs/a.pdf", all[0].SourcePath)
	assert.Equal(t, "/docs/b.txt", all[1].SourcePath)
	assert.Equal(t, "/docs/c.csv", all[2].SourcePath)
}

func TestDocumentRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	require.NoError(t, repo.SaveRecord(testDocumentRecord("/docs/manual.pdf")))
	require.NoError(t, repo.DeleteRecord("/docs/manual.pdf"))

	found, err := repo.GetRecord("/docs/manual.pdf")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDocumentRepository_UpdateFileMtime(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	record := testDocumentRecord("/docs/manual.pdf")
	record.FileMtime = 1000
	require.NoError(t, repo.SaveRecord(record))

	require.NoError(t, repo.UpdateFileMtime("/docs/manual.pdf", 2000))

	found, err := repo.GetRecord("/docs/manual.pdf")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(2000), found.FileMtime)
	assert.Equal(t, "abc123", found.ContentHash, "更新 mtime 不应影响其他字段")
}

func TestDocumentRepository_ClearAllRecords(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	require.NoError(t, repo.SaveRecord(testDocumentRecord("/docs/a.pdf")))
	require.NoError(t, repo.SaveRecord(testDocumentRecord("/docs/b.pdf")))

	require.NoError(t, repo.ClearAllRecords())

	all, err := repo.ListRecords()
	require.NoError(t, err)
	assert.Empty(t, all)
}
