package database

import "go.mongodb.org/mongo-driver/mongo"

// Collection names as constants to prevent typos
const (
	FilesCollection = "files"
)

// Collections provides typed access to all collections
type Collections struct {
	manager *Manager
}

// NewCollections creates a new collections instance
func NewCollections(manager *Manager) *Collections {
	return &Collections{
		manager: manager,
	}
}

func (c *Collections) Files() *mongo.Collection {
	return c.manager.GetCollection(FilesCollection)
}
