package dialog

import (
	"strings"

	apperrors "dialog-agent/errors"
	"dialog-agent/utils"

	"github.com/google/uuid"
)

// Relationship is one player talking to one dialogue partner. Weariness,
// table availability and ask completion state are kept per relationship.
type Relationship struct {
	PlayerID  uuid.UUID
	PartnerID string
}

// Key is "<player uuid>:<partner>", used to key every per-relationship store.
func (r Relationship) Key() string {
	return r.PlayerID.String() + ":" + r.PartnerID
}

func (r Relationship) Validate() error {
	if r.PlayerID == uuid.Nil {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "relationship has no player id")
	}
	if !utils.ValidIdentifier(r.PartnerID) {
		return apperrors.WrapErrorf(apperrors.ErrInvalidInput, "invalid partner id %q", r.PartnerID)
	}
	return nil
}

// ParseRelationshipKey reverses Key.
func ParseRelationshipKey(key string) (Relationship, error) {
	player, partner, ok := strings.Cut(key, ":")
	if !ok {
		return Relationship{}, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "malformed relationship key %q", key)
	}
	id, err := uuid.Parse(player)
	if err != nil {
		return Relationship{}, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "malformed player id in %q", key)
	}
	rel := Relationship{PlayerID: id, PartnerID: partner}
	return rel, rel.Validate()
}
