package app

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/docstore"

	// Register blob drivers for the file store.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/allisson/secretsgroup/internal/config"
	secretsDomain "github.com/allisson/secretsgroup/internal/secrets/domain"
	secretsRepository "github.com/allisson/secretsgroup/internal/secrets/repository"
	secretsUseCase "github.com/allisson/secretsgroup/internal/secrets/usecase"
)

// GroupIdentifier returns the secrets group selected by configuration.
func (c *Container) GroupIdentifier() (secretsDomain.SecretsGroupIdentifier, error) {
	group := secretsDomain.SecretsGroupIdentifier{
		Region: c.config.GroupRegion,
		Name:   c.config.GroupName,
	}
	if err := group.Validate(); err != nil {
		return secretsDomain.SecretsGroupIdentifier{}, err
	}
	return group, nil
}

// Bucket returns the blob bucket holding group files.
func (c *Container) Bucket() (*blob.Bucket, error) {
	var err error
	c.bucketInit.Do(func() {
		c.bucket, err = blob.OpenBucket(context.Background(), c.config.FileStoreBucketURL)
		if err != nil {
			err = fmt.Errorf("failed to open bucket: %w", err)
			c.initErrors["bucket"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bucket"]; exists {
		return nil, storedErr
	}
	return c.bucket, nil
}

// TableCollection returns the docstore collection of the table store.
func (c *Container) TableCollection() (*docstore.Collection, error) {
	var err error
	c.collectionInit.Do(func() {
		c.collection, err = secretsRepository.OpenTableCollection(
			context.Background(),
			c.config.TableStoreCollectionURL,
		)
		if err != nil {
			c.initErrors["collection"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["collection"]; exists {
		return nil, storedErr
	}
	return c.collection, nil
}

// Store returns the secret store selected by STORE_BACKEND.
func (c *Container) Store() (secretsUseCase.Store, error) {
	var err error
	c.storeInit.Do(func() {
		c.store, err = c.initStore()
		if err != nil {
			c.initErrors["store"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["store"]; exists {
		return nil, storedErr
	}
	return c.store, nil
}

// SecretsGroupUseCase returns the secrets group engine, instrumented with business metrics.
func (c *Container) SecretsGroupUseCase() (secretsUseCase.SecretsGroupUseCase, error) {
	var err error
	c.secretsGroupUseCaseInit.Do(func() {
		c.secretsGroupUseCase, err = c.initSecretsGroupUseCase()
		if err != nil {
			c.initErrors["secretsGroupUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretsGroupUseCase"]; exists {
		return nil, storedErr
	}
	return c.secretsGroupUseCase, nil
}

// initStore creates the store for the configured backend.
func (c *Container) initStore() (secretsUseCase.Store, error) {
	group, err := c.GroupIdentifier()
	if err != nil {
		return nil, err
	}
	logger := c.Logger()

	switch c.config.StoreBackend {
	case config.StoreBackendFile:
		bucket, err := c.Bucket()
		if err != nil {
			return nil, err
		}
		encryptor, err := c.Encryptor()
		if err != nil {
			return nil, fmt.Errorf("failed to get encryptor for file store: %w", err)
		}
		store, err := secretsRepository.OpenFileStore(context.Background(), bucket, group, encryptor, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreBackendTable:
		coll, err := c.TableCollection()
		if err != nil {
			return nil, err
		}
		return secretsRepository.NewTableStore(coll, group, logger), nil
	case config.StoreBackendPostgres:
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return secretsRepository.NewPostgreSQLSecretStore(db, group, logger), nil
	case config.StoreBackendMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return secretsRepository.NewMySQLSecretStore(db, group, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", c.config.StoreBackend)
	}
}

// initSecretsGroupUseCase assembles the engine on the store and encryptor.
func (c *Container) initSecretsGroupUseCase() (secretsUseCase.SecretsGroupUseCase, error) {
	store, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for secrets group: %w", err)
	}

	encryptor, err := c.Encryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryptor for secrets group: %w", err)
	}

	group, err := c.GroupIdentifier()
	if err != nil {
		return nil, err
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for secrets group: %w", err)
	}

	useCase := secretsUseCase.NewSecretsGroupUseCase(
		store,
		encryptor,
		group,
		secretsDomain.UserAlias(c.config.Actor),
		c.config.DecryptConcurrency,
		c.Logger(),
	)
	return secretsUseCase.NewSecretsGroupUseCaseWithMetrics(useCase, businessMetrics), nil
}
