package utils

import (
	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StringToObjectID converts string to MongoDB ObjectID
func StringToObjectID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
