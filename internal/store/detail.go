package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/util/timefmt"
)

// groupRef is the JSON shape of one group membership inside a
// contact row's groups column.
type groupRef struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
}

// GetDetail loads a user's full roster: groups and contacts, with
// contact heads resolved through the cache so pointer identity holds.
func (s *Store) GetDetail(ctx context.Context, userUUID string) (*models.UserDetail, error) {
	u, err := s.Get(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no such user %s", userUUID)
	}

	detail := models.NewUserDetail()

	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, group_uuid, name, is_favorite, date_modified
		 FROM user_groups WHERE user_id = ?`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			g        models.Group
			favorite int
			modified sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.UUID, &g.Name, &favorite, &modified); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.IsFavorite = favorite != 0
		if modified.Valid {
			g.DateModified = timefmt.Parse(modified.String)
		}
		detail.InsertGroup(&g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	if err := s.loadContacts(ctx, u, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Store) loadContacts(ctx context.Context, u *models.User, detail *models.UserDetail) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_uuid, name, message, lists, groups,
		        is_messenger_user, is_favorite,
		        birthdate, anniversary, notes, display_name,
		        first_name, middle_name, last_name, nickname,
		        primary_email_type, personal_email, work_email, im_email, other_email,
		        home_phone, work_phone, fax_phone, pager_phone, mobile_phone, other_phone,
		        personal_website, business_website, locations
		 FROM user_contacts WHERE user_id = ?`, u.ID)
	if err != nil {
		return fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	type row struct {
		uuid      string
		name      sql.NullString
		message   sql.NullString
		lists     int
		groups    string
		messenger int
		favorite  int
		info      [21]sql.NullString
		locations string
	}
	var loaded []row
	for rows.Next() {
		var r row
		dest := []any{
			&r.uuid, &r.name, &r.message, &r.lists, &r.groups,
			&r.messenger, &r.favorite,
		}
		for i := range r.info {
			dest = append(dest, &r.info[i])
		}
		dest = append(dest, &r.locations)
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan contact: %w", err)
		}
		loaded = append(loaded, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate contacts: %w", err)
	}

	// Heads are resolved outside the row loop: Get may hit the DB, and
	// the driver dislikes nested queries on one connection.
	for _, r := range loaded {
		head, err := s.Get(ctx, r.uuid)
		if err != nil {
			return err
		}
		if head == nil {
			// Dangling roster edge; skip rather than fail the login.
			continue
		}
		ctc := models.NewContact(head, r.name.String)
		ctc.Lists = models.Lst(r.lists)
		ctc.Status.Message = r.message.String
		ctc.IsMessengerUser = r.messenger != 0
		ctc.IsFavorite = r.favorite != 0

		var refs []groupRef
		if err := json.Unmarshal([]byte(r.groups), &refs); err != nil {
			return fmt.Errorf("decode groups of contact %s: %w", r.uuid, err)
		}
		for _, ref := range refs {
			ctc.AddGroupEntry(models.ContactGroupEntry{
				ContactUUID: r.uuid,
				GroupID:     ref.ID,
				GroupUUID:   ref.UUID,
			})
		}

		info := &ctc.Info
		fields := []*string{
			&info.Birthdate, &info.Anniversary, &info.Notes, &info.DisplayName,
			&info.FirstName, &info.MiddleName, &info.LastName, &info.Nickname,
			&info.PrimaryEmailType, &info.PersonalEmail, &info.WorkEmail,
			&info.IMEmail, &info.OtherEmail,
			&info.HomePhone, &info.WorkPhone, &info.FaxPhone, &info.PagerPhone,
			&info.MobilePhone, &info.OtherPhone,
		}
		// info[3] is display_name; NewContact pre-filled it from name,
		// but the column wins when set.
		for i, f := range fields {
			if r.info[i].Valid {
				*f = r.info[i].String
			}
		}
		if r.info[19].Valid {
			info.PersonalWebsite = r.info[19].String
		}
		if r.info[20].Valid {
			info.BusinessWebsite = r.info[20].String
		}
		if err := json.Unmarshal([]byte(r.locations), &info.Locations); err != nil {
			return fmt.Errorf("decode locations of contact %s: %w", r.uuid, err)
		}

		detail.Contacts[r.uuid] = ctc
	}
	return nil
}

// SaveItem is one user whose roster needs flushing.
type SaveItem struct {
	User   *models.User
	Detail *models.UserDetail
}

// SaveBatch writes a set of users and their rosters in one
// transaction. Rows are replaced wholesale, so replaying the same
// batch is harmless.
func (s *Store) SaveBatch(ctx context.Context, items []SaveItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save batch: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := saveUser(ctx, tx, item); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save batch: %w", err)
	}
	return nil
}

func saveUser(ctx context.Context, tx *sql.Tx, item SaveItem) error {
	u := item.User
	now := timefmt.Format(time.Now())

	message := u.Status.Message
	if u.Status.MessageTemp {
		message = ""
	}
	settings, err := json.Marshal(u.Settings)
	if err != nil {
		return fmt.Errorf("encode settings for %s: %w", u.UUID, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET name = ?, message = ?, settings = ?, date_modified = ?
		 WHERE id = ?`,
		u.Status.Name, message, string(settings), now, u.ID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.UUID, err)
	}

	if item.Detail == nil {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_groups WHERE user_id = ?", u.ID); err != nil {
		return fmt.Errorf("clear groups for %s: %w", u.UUID, err)
	}
	for _, g := range item.Detail.Groups() {
		var modified any
		if !g.DateModified.IsZero() {
			modified = timefmt.Format(g.DateModified)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_groups (user_id, group_id, group_uuid, name, is_favorite, date_modified)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, g.ID, g.UUID, g.Name, boolInt(g.IsFavorite), modified)
		if err != nil {
			return fmt.Errorf("insert group %s for %s: %w", g.ID, u.UUID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_contacts WHERE user_id = ?", u.ID); err != nil {
		return fmt.Errorf("clear contacts for %s: %w", u.UUID, err)
	}
	for _, ctc := range item.Detail.Contacts {
		refs := make([]groupRef, 0)
		for _, e := range ctc.GroupEntries() {
			refs = append(refs, groupRef{ID: e.GroupID, UUID: e.GroupUUID})
		}
		groups, err := json.Marshal(refs)
		if err != nil {
			return fmt.Errorf("encode groups for %s: %w", ctc.Head.UUID, err)
		}
		locations, err := json.Marshal(orEmptyLocations(ctc.Info.Locations))
		if err != nil {
			return fmt.Errorf("encode locations for %s: %w", ctc.Head.UUID, err)
		}
		info := ctc.Info
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_contacts (
			    user_id, contact_id, contact_uuid, name, message, lists, groups,
			    is_messenger_user, is_favorite,
			    birthdate, anniversary, notes, display_name,
			    first_name, middle_name, last_name, nickname,
			    primary_email_type, personal_email, work_email, im_email, other_email,
			    home_phone, work_phone, fax_phone, pager_phone, mobile_phone, other_phone,
			    personal_website, business_website, locations
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, ctc.Head.ID, ctc.Head.UUID,
			ctc.Status.Name, ctc.Status.Message, int(ctc.Lists), string(groups),
			boolInt(ctc.IsMessengerUser), boolInt(ctc.IsFavorite),
			info.Birthdate, info.Anniversary, info.Notes, info.DisplayName,
			info.FirstName, info.MiddleName, info.LastName, info.Nickname,
			info.PrimaryEmailType, info.PersonalEmail, info.WorkEmail,
			info.IMEmail, info.OtherEmail,
			info.HomePhone, info.WorkPhone, info.FaxPhone, info.PagerPhone,
			info.MobilePhone, info.OtherPhone,
			info.PersonalWebsite, info.BusinessWebsite, string(locations))
		if err != nil {
			return fmt.Errorf("insert contact %s for %s: %w", ctc.Head.UUID, u.UUID, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmptyLocations(m map[string]models.ContactLocation) map[string]models.ContactLocation {
	if m == nil {
		return map[string]models.ContactLocation{}
	}
	return m
}
