// Package repository holds the Postgres persistence for the canonical
// entities. Upserts key on the local id and return the authoritative
// persisted row; linkage uniqueness is enforced by partial unique
// indexes so two rows can never claim the same provider record.
package repository

import (
	"time"

	"personal-organizer/backend/internal/model"

	"github.com/jackc/pgx/v5/pgtype"
)

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func tsOrNull(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func tsValue(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func linkage(providerID, accountID pgtype.Text) model.Linkage {
	var link model.Linkage
	if providerID.Valid {
		link.ProviderID = providerID.String
	}
	if accountID.Valid {
		link.AccountID = accountID.String
	}
	return link
}
