package service_test

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/commentd/internal/model"
)

// fakeStore is an in-memory CommentStore. Reads return copies sorted by id,
// matching the repository's ORDER BY id contract.
type fakeStore struct {
	comments    map[int64]model.Comment
	nextID      int64
	insertErr   error
	findErr     error
	topLevelErr error
	childrenErr map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		comments:    make(map[int64]model.Comment),
		childrenErr: make(map[int64]error),
	}
}

func (s *fakeStore) add(c model.Comment) model.Comment {
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	} else if c.ID > s.nextID {
		s.nextID = c.ID
	}
	s.comments[c.ID] = c
	return c
}

func (s *fakeStore) Insert(_ context.Context, c *model.Comment) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.nextID++
	c.ID = s.nextID
	s.comments[c.ID] = *c
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id int64) (*model.Comment, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	c, ok := s.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (s *fakeStore) FindChildren(_ context.Context, parentID int64) ([]model.Comment, error) {
	if err, ok := s.childrenErr[parentID]; ok {
		return nil, err
	}
	var out []model.Comment
	for _, id := range s.sortedIDs() {
		if c := s.comments[id]; c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) FindTopLevel(_ context.Context, articleID string) ([]model.Comment, error) {
	if s.topLevelErr != nil {
		return nil, s.topLevelErr
	}
	var out []model.Comment
	for _, id := range s.sortedIDs() {
		if c := s.comments[id]; c.ParentID == 0 && c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.comments))
	for id := range s.comments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type publishedEvent struct {
	RoutingKey string
	Payload    any
}

// fakePublisher records publishes and can fail selected routing keys.
type fakePublisher struct {
	published []publishedEvent
	failKeys  map[string]error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failKeys: make(map[string]error)}
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	if err, ok := p.failKeys[routingKey]; ok {
		return err
	}
	p.published = append(p.published, publishedEvent{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (p *fakePublisher) byKey(routingKey string) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.published {
		if e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

type recordedFailure struct {
	CommentID  int64
	Channel    string
	RoutingKey string
	ErrorMsg   string
}

// fakeFailedStore records failed-enqueue rows.
type fakeFailedStore struct {
	records   []recordedFailure
	insertErr error
}

func (f *fakeFailedStore) Insert(_ context.Context, commentID int64, channel, routingKey string, _ interface{}, errorMsg string) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, recordedFailure{
		CommentID:  commentID,
		Channel:    channel,
		RoutingKey: routingKey,
		ErrorMsg:   errorMsg,
	})
	return nil
}
