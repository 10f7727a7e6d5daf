// Package testutil provides in-memory collaborators for tests: a content
// store and a media source with call recording and failure injection.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
)

// UploadCall records one UploadAsset request.
type UploadCall struct {
	FileName string
	MimeType string
	Size     int
	Failed   bool
}

// FakeStore is an in-memory ContentStore.
type FakeStore struct {
	uploadErr      error
	associateErr   error
	findErr        error
	assets         map[string]model.AssetHandle
	associations   map[string]string
	records        []model.ContentRecord
	uploads        []UploadCall
	lookups        []string
	uploadFailures int
	nextID         int
	mu             sync.Mutex
}

// NewFakeStore creates a store holding the given records.
func NewFakeStore(records ...model.ContentRecord) *FakeStore {
	return &FakeStore{
		assets:       make(map[string]model.AssetHandle),
		associations: make(map[string]string),
		records:      append([]model.ContentRecord(nil), records...),
	}
}

// FailNextUploads makes the next n uploads fail with err.
func (s *FakeStore) FailNextUploads(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadFailures = n
	s.uploadErr = err
}

// FailAssociations makes every Associate call fail with err.
func (s *FakeStore) FailAssociations(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associateErr = err
}

// FailFindRecords makes FindRecords fail with err.
func (s *FakeStore) FailFindRecords(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErr = err
}

// PutAsset stores an already uploaded asset under name.
func (s *FakeStore) PutAsset(name string) model.AssetHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(name)
}

func (s *FakeStore) putLocked(name string) model.AssetHandle {
	s.nextID++
	h := model.AssetHandle{
		ID:   fmt.Sprintf("media-%d", s.nextID),
		Name: name,
		URL:  "/uploads/" + name,
	}
	s.assets[name] = h
	return h
}

// FindRecords implements service.ContentStore.
func (s *FakeStore) FindRecords(_ context.Context) ([]model.ContentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return append([]model.ContentRecord(nil), s.records...), nil
}

// FindAssetByIdentity implements service.ContentStore.
func (s *FakeStore) FindAssetByIdentity(_ context.Context, key string) (*model.AssetHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, key)
	h, ok := s.assets[key]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// UploadAsset implements service.ContentStore.
func (s *FakeStore) UploadAsset(_ context.Context, data []byte, fileName, mimeType string) (*model.AssetHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := UploadCall{FileName: fileName, MimeType: mimeType, Size: len(data)}
	if s.uploadFailures > 0 {
		s.uploadFailures--
		call.Failed = true
		s.uploads = append(s.uploads, call)
		return nil, &common.TransferError{FileName: fileName, Err: s.uploadErr}
	}
	s.uploads = append(s.uploads, call)

	h := s.putLocked(model.IdentityKey(fileName))
	return &h, nil
}

// Associate implements service.ContentStore.
func (s *FakeStore) Associate(_ context.Context, recordID string, handle model.AssetHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.associateErr != nil {
		return &common.AssociationError{RecordID: recordID, AssetID: handle.ID, Err: s.associateErr}
	}
	for i := range s.records {
		if s.records[i].ID != recordID {
			continue
		}
		if s.records[i].HasAssociatedMedia {
			return &common.AssociationError{RecordID: recordID, AssetID: handle.ID, Err: common.ErrAlreadyAssociated}
		}
		s.records[i].HasAssociatedMedia = true
		s.associations[recordID] = handle.ID
		return nil
	}
	return &common.AssociationError{RecordID: recordID, AssetID: handle.ID, Err: common.ErrRecordNotFound}
}

// ResetAssociations detaches all media from records while keeping the
// uploaded files, as if an editor had cleared them.
func (s *FakeStore) ResetAssociations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		s.records[i].HasAssociatedMedia = false
	}
	s.associations = make(map[string]string)
}

// Uploads returns every upload request, failed ones included.
func (s *FakeStore) Uploads() []UploadCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UploadCall(nil), s.uploads...)
}

// SuccessfulUploads counts uploads that stored a file.
func (s *FakeStore) SuccessfulUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.uploads {
		if !u.Failed {
			n++
		}
	}
	return n
}

// Lookups returns every identity key looked up.
func (s *FakeStore) Lookups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

// Associations returns record ID to asset handle ID.
func (s *FakeStore) Associations() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.associations))
	for k, v := range s.associations {
		out[k] = v
	}
	return out
}

// FakeSource is an in-memory MediaSource.
type FakeSource struct {
	files   map[string][]byte
	fetches map[string]int
	mu      sync.Mutex
}

// NewFakeSource creates an empty source.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		files:   make(map[string][]byte),
		fetches: make(map[string]int),
	}
}

// Put serves data at url.
func (f *FakeSource) Put(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[url] = data
}

// Fetch implements service.MediaSource. Unknown URLs fail with 404.
func (f *FakeSource) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[url]++
	data, ok := f.files[url]
	if !ok {
		return nil, &common.FetchError{URL: url, StatusCode: http.StatusNotFound, Attempts: 1}
	}
	return append([]byte(nil), data...), nil
}

// Fetches returns how many times url was requested.
func (f *FakeSource) Fetches(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[url]
}

// TotalFetches returns the number of Fetch calls.
func (f *FakeSource) TotalFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fetches {
		n += c
	}
	return n
}
