package services

import (
	"context"

	"github.com/streamify-app/backend/internal/apperror"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userIndex map[primitive.ObjectID]*models.User

// compact returns the summary for id, or a bare reference when the user is gone.
func (idx userIndex) compact(id primitive.ObjectID) models.UserCompact {
	if u, ok := idx[id]; ok {
		return u.ToCompact()
	}
	return models.UserCompact{ID: id}
}

func lookupUsers(ctx context.Context, users repositories.UserRepository, ids []primitive.ObjectID) (userIndex, error) {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found, err := users.GetUsersByIDs(ctx, unique)
	if err != nil {
		return nil, apperror.Unknown("failed to resolve users", err)
	}
	idx := make(userIndex, len(found))
	for i := range found {
		idx[found[i].ID] = &found[i]
	}
	return idx, nil
}
