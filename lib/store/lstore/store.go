package lstore

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/store"
)

type storeImpl struct {
	db db.ObjectDB
}

// NewLocalStore creates a new local store instance and initializes its database with dev.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore(factory store.DBFactory, dev store.Device) (store.IStore, error) {
	database := factory()
	if err := database.Initialize(dev.Redundant, dev.WearLevelingFactor); err != nil {
		return nil, fmt.Errorf("lstore: initialize: %w", err)
	}
	return &storeImpl{db: database}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Store(key db.Key, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureStore) {
		return store.NewError(store.RetCUnsupportedOperation, "Store operation is not supported")
	}
	return asError(s.db.Store(key, value))
}

func (s *storeImpl) Get(key db.Key) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureRead) {
		return nil, false, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
	}
	value, err := s.db.Get(key)
	if errors.Is(err, db.ErrNoSuchObject) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, asError(err)
	}
	return value, true, nil
}

func (s *storeImpl) Find(key db.Key) (db.ObjectInfo, bool, error) {
	if !s.db.SupportsFeature(db.FeatureFind) {
		return db.ObjectInfo{}, false, store.NewError(store.RetCUnsupportedOperation, "Find operation is not supported")
	}
	offset, size, err := s.db.Find(key)
	if errors.Is(err, db.ErrNoSuchObject) {
		return db.ObjectInfo{}, false, nil
	}
	if err != nil {
		return db.ObjectInfo{}, false, asError(err)
	}
	return db.ObjectInfo{Key: key, Offset: offset, Size: size}, true, nil
}

func (s *storeImpl) Delete(key db.Key) error {
	if !s.db.SupportsFeature(db.FeatureDelete) {
		return store.NewError(store.RetCUnsupportedOperation, "Delete operation is not supported")
	}
	return asError(s.db.Delete(key))
}

func (s *storeImpl) List() ([]db.ObjectInfo, error) {
	if !s.db.SupportsFeature(db.FeatureList) {
		return nil, store.NewError(store.RetCUnsupportedOperation, "List operation is not supported")
	}
	objects, err := s.db.List()
	return objects, asError(err)
}

func (s *storeImpl) Format() error {
	if !s.db.SupportsFeature(db.FeatureFormat) {
		return store.NewError(store.RetCUnsupportedOperation, "Format operation is not supported")
	}
	return asError(s.db.Format())
}

func (s *storeImpl) Erase() error {
	if !s.db.SupportsFeature(db.FeatureErase) {
		return store.NewError(store.RetCUnsupportedOperation, "Erase operation is not supported")
	}
	return asError(s.db.Erase())
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

// asError converts err into a *store.Error and keeps a nil error untyped.
func asError(err error) error {
	if se := store.FromError(err); se != nil {
		return se
	}
	return nil
}
