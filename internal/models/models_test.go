package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, primitive.NewObjectID()))
}

func TestGroupChannelID(t *testing.T) {
	id, err := primitive.ObjectIDFromHex("65f0c0ffee00000000000001")
	assert.NoError(t, err)

	g := &Group{ID: id}
	assert.Equal(t, "group_65f0c0ffee00000000000001", g.ChannelID())
}

func TestMembership(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	g := &Group{Members: []primitive.ObjectID{alice}}
	assert.True(t, g.HasMember(alice))
	assert.False(t, g.HasMember(bob))

	u := &User{Friends: []primitive.ObjectID{bob}}
	assert.True(t, u.IsFriend(bob))
	assert.False(t, u.IsFriend(alice))
}
