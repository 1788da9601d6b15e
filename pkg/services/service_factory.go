package services

import (
	"errors"
	"sync"

	"github.com/deploymenttheory/go-macfiles/internal/metadata"
)

// ErrNoMetadataSource is returned when the factory was built without a metadata source
var ErrNoMetadataSource = errors.New("no metadata source configured")

// FactoryConfig configures the services created by a ServiceFactory
type FactoryConfig struct {
	// PageSize bounds the nodes of newly created stores
	PageSize int
	// Source answers filesystem queries for alias and bookmark generation
	Source metadata.Source
}

// ServiceFactory provides a centralized way to create and manage services
type ServiceFactory struct {
	config          FactoryConfig
	storeService    StoreService
	metadataService MetadataService
	mu              sync.RWMutex
	initialized     bool
}

// NewServiceFactory creates a new service factory instance
func NewServiceFactory(config FactoryConfig) *ServiceFactory {
	return &ServiceFactory{config: config}
}

// Initialize initializes all services with their dependencies
func (sf *ServiceFactory) Initialize() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if sf.initialized {
		return nil
	}

	sf.storeService = NewStoreService(sf.config.PageSize)
	if sf.config.Source != nil {
		sf.metadataService = NewMetadataService(sf.config.Source)
	}

	sf.initialized = true
	return nil
}

// StoreService returns the store service instance
func (sf *ServiceFactory) StoreService() (StoreService, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.storeService, nil
}

// MetadataService returns the metadata service instance
func (sf *ServiceFactory) MetadataService() (MetadataService, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	if sf.metadataService == nil {
		return nil, ErrNoMetadataSource
	}
	return sf.metadataService, nil
}

// Shutdown closes all open stores and resets the factory
func (sf *ServiceFactory) Shutdown() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if !sf.initialized {
		return nil
	}

	var err error
	if sf.storeService != nil {
		err = sf.storeService.Close()
	}

	sf.storeService = nil
	sf.metadataService = nil
	sf.initialized = false
	return err
}

// IsInitialized returns whether the factory has been initialized
func (sf *ServiceFactory) IsInitialized() bool {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.initialized
}
