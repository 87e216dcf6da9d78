package app

import (
	"context"
	"fmt"

	"github.com/allisson/secretsgroup/internal/config"
	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
	cryptoService "github.com/allisson/secretsgroup/internal/crypto/service"
)

// MasterKeyChain returns the master key chain loaded from environment variables.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var err error
	c.masterKeyChainInit.Do(func() {
		c.masterKeyChain, err = c.initMasterKeyChain()
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// KeyWrapper returns the data key wrapper selected by ENCRYPTOR.
func (c *Container) KeyWrapper() (cryptoService.KeyWrapper, error) {
	var err error
	c.keyWrapperInit.Do(func() {
		c.keyWrapper, err = c.initKeyWrapper()
		if err != nil {
			c.initErrors["keyWrapper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyWrapper"]; exists {
		return nil, storedErr
	}
	return c.keyWrapper, nil
}

// Encryptor returns the envelope encryptor protecting secret payloads.
func (c *Container) Encryptor() (cryptoService.Encryptor, error) {
	var err error
	c.encryptorInit.Do(func() {
		c.encryptor, err = c.initEncryptor()
		if err != nil {
			c.initErrors["encryptor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["encryptor"]; exists {
		return nil, storedErr
	}
	return c.encryptor, nil
}

// initMasterKeyChain loads the master key chain from environment variables.
func (c *Container) initMasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	chain, err := cryptoDomain.LoadMasterKeyChain(c.config.MasterKeys, c.config.ActiveMasterKeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key chain: %w", err)
	}
	return chain, nil
}

// initKeyWrapper builds a master key wrapper, or a rate limited KMS keeper wrapper.
func (c *Container) initKeyWrapper() (cryptoService.KeyWrapper, error) {
	switch c.config.Encryptor {
	case config.EncryptorKMS:
		keeper, err := c.KMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
		if err != nil {
			return nil, err
		}
		c.keeper = keeper

		wrapper := cryptoService.NewKeeperKeyWrapper(keeper, cryptoService.KeeperKeyID(c.config.KMSKeyURI))
		return cryptoService.NewRateLimitedKeyWrapper(
			wrapper,
			c.config.KMSRateLimitPerSec,
			c.config.KMSRateLimitBurst,
		), nil
	case config.EncryptorMasterKey, "":
		chain, err := c.MasterKeyChain()
		if err != nil {
			return nil, err
		}
		alg, err := cryptoDomain.ParseAlgorithm(c.config.EncryptionAlgorithm)
		if err != nil {
			return nil, err
		}
		return cryptoService.NewMasterKeyWrapper(chain, c.AEADManager(), alg), nil
	default:
		return nil, fmt.Errorf("unsupported encryptor: %s", c.config.Encryptor)
	}
}

// initEncryptor creates the envelope encryptor on top of the key wrapper.
func (c *Container) initEncryptor() (cryptoService.Encryptor, error) {
	wrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper for encryptor: %w", err)
	}
	alg, err := cryptoDomain.ParseAlgorithm(c.config.EncryptionAlgorithm)
	if err != nil {
		return nil, err
	}
	return cryptoService.NewEnvelopeEncryptor(wrapper, c.AEADManager(), alg), nil
}
