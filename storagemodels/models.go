/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/suparena/persistence/errors"
)

// StoreKind selects where a store keeps its data.
type StoreKind int

const (
	// KindInMemory is a store that never touches disk.
	KindInMemory StoreKind = iota
	// KindLocal is an on-device store.
	KindLocal
	// KindCloudPrivate is an on-device store mirrored to a private cloud scope.
	KindCloudPrivate
	// KindCloudShared is an on-device store mirrored to a shared cloud scope.
	KindCloudShared
)

func (k StoreKind) String() string {
	switch k {
	case KindInMemory:
		return "in-memory"
	case KindLocal:
		return "local"
	case KindCloudPrivate:
		return "cloud-private"
	case KindCloudShared:
		return "cloud-shared"
	default:
		return fmt.Sprintf("StoreKind(%d)", int(k))
	}
}

// ParseStoreKind is the inverse of StoreKind.String.
func ParseStoreKind(s string) (StoreKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in-memory", "inmemory", "memory":
		return KindInMemory, nil
	case "local":
		return KindLocal, nil
	case "cloud-private", "private":
		return KindCloudPrivate, nil
	case "cloud-shared", "shared":
		return KindCloudShared, nil
	default:
		return 0, errors.NewValidationError("kind", fmt.Sprintf("unknown store kind %q", s))
	}
}

// IsCloud reports whether the kind is mirrored to a cloud scope.
func (k StoreKind) IsCloud() bool {
	return k == KindCloudPrivate || k == KindCloudShared
}

// DefaultFileName returns the file name used when a spec leaves it empty.
func (k StoreKind) DefaultFileName() string {
	switch k {
	case KindLocal:
		return "local"
	case KindCloudPrivate:
		return "private"
	case KindCloudShared:
		return "shared"
	default:
		return ""
	}
}

// CloudScope is the visibility of a cloud mirrored store.
type CloudScope string

const (
	ScopePrivate CloudScope = "private"
	ScopeShared  CloudScope = "shared"
)

// StoreExtension is appended to every on-disk store file name.
const StoreExtension = ".sqlite"

var containerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,255}$`)

// StoreSpec describes one logical store. Build it with InMemory, Local,
// CloudPrivate or CloudShared; the zero value is an in-memory store over the
// default configuration.
type StoreSpec struct {
	// Kind selects the backing of the store.
	Kind StoreKind
	// Configuration names the model configuration served by the store.
	// Empty selects every entity of the model.
	Configuration string
	// FileName is the base name of the SQLite file. Ignored for in-memory stores.
	FileName string
	// CloudContainerID identifies the remote container of cloud stores.
	// When empty the controller's default container is used.
	CloudContainerID string
}

// InMemory returns a spec for a store that is never written to disk.
func InMemory(configuration string) StoreSpec {
	return StoreSpec{Kind: KindInMemory, Configuration: configuration}
}

// Local returns a spec for an on-device store. An empty fileName selects "local".
func Local(configuration, fileName string) StoreSpec {
	return StoreSpec{Kind: KindLocal, Configuration: configuration, FileName: orDefault(fileName, KindLocal)}
}

// CloudPrivate returns a spec for a store mirrored to a private cloud scope.
// An empty fileName selects "private".
func CloudPrivate(configuration, containerID, fileName string) StoreSpec {
	return StoreSpec{
		Kind:             KindCloudPrivate,
		Configuration:    configuration,
		FileName:         orDefault(fileName, KindCloudPrivate),
		CloudContainerID: containerID,
	}
}

// CloudShared returns a spec for a store mirrored to a shared cloud scope.
// An empty fileName selects "shared".
func CloudShared(configuration, containerID, fileName string) StoreSpec {
	return StoreSpec{
		Kind:             KindCloudShared,
		Configuration:    configuration,
		FileName:         orDefault(fileName, KindCloudShared),
		CloudContainerID: containerID,
	}
}

func orDefault(fileName string, kind StoreKind) string {
	if fileName == "" {
		return kind.DefaultFileName()
	}
	return fileName
}

// ResolvedFileName returns FileName, or the kind's default when it is empty.
func (s StoreSpec) ResolvedFileName() string {
	return orDefault(s.FileName, s.Kind)
}

func (s StoreSpec) String() string {
	configuration := s.Configuration
	if configuration == "" {
		configuration = "default"
	}
	switch {
	case s.Kind == KindInMemory:
		return fmt.Sprintf("%s(configuration=%s)", s.Kind, configuration)
	case s.Kind.IsCloud():
		return fmt.Sprintf("%s(configuration=%s, file=%s, container=%s)", s.Kind, configuration, s.ResolvedFileName(), s.CloudContainerID)
	default:
		return fmt.Sprintf("%s(configuration=%s, file=%s)", s.Kind, configuration, s.ResolvedFileName())
	}
}

// Validate checks the StoreSpec invariants. defaultContainerID is the controller
// level container inherited by cloud specs that leave theirs empty.
func (s StoreSpec) Validate(defaultContainerID string) error {
	switch s.Kind {
	case KindInMemory, KindLocal, KindCloudPrivate, KindCloudShared:
	default:
		return errors.NewValidationError("kind", fmt.Sprintf("unknown store kind %d", int(s.Kind)))
	}

	if s.Kind != KindInMemory {
		name := s.ResolvedFileName()
		if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
			return errors.NewValidationError("fileName", fmt.Sprintf("%q is not a plain file name", name))
		}
	}

	if !s.Kind.IsCloud() {
		if s.CloudContainerID != "" {
			return errors.NewValidationError("cloudContainerID", fmt.Sprintf("not allowed for %s stores", s.Kind))
		}
		return nil
	}

	containerID := s.CloudContainerID
	if containerID == "" {
		containerID = defaultContainerID
	}
	if containerID == "" {
		return errors.NewValidationError("cloudContainerID", fmt.Sprintf("required for %s stores", s.Kind))
	}
	if !containerIDPattern.MatchString(containerID) {
		return errors.NewValidationError("cloudContainerID", fmt.Sprintf("malformed container identifier %q", containerID))
	}
	return nil
}

// Describe validates the StoreSpec and resolves it into a concrete description
// rooted at dir.
func (s StoreSpec) Describe(dir, defaultContainerID string) (StoreDescription, error) {
	if err := s.Validate(defaultContainerID); err != nil {
		return StoreDescription{}, err
	}

	desc := StoreDescription{
		Spec:          s,
		Configuration: s.Configuration,
	}

	if s.Kind == KindInMemory {
		desc.Path = os.DevNull
		desc.InMemory = true
		return desc, nil
	}

	desc.Path = filepath.Join(dir, s.ResolvedFileName()+StoreExtension)

	if s.Kind.IsCloud() {
		containerID := s.CloudContainerID
		if containerID == "" {
			containerID = defaultContainerID
		}
		scope := ScopePrivate
		if s.Kind == KindCloudShared {
			scope = ScopeShared
		}
		desc.Cloud = &CloudOptions{ContainerID: containerID, Scope: scope}
	}
	return desc, nil
}

// StoreDescription is the resolved form of a StoreSpec that a loader opens.
type StoreDescription struct {
	Spec StoreSpec
	// Path is the store file, or os.DevNull for in-memory stores.
	Path string
	// InMemory reports that nothing is persisted.
	InMemory bool
	// Configuration is the model configuration served by the store.
	Configuration string
	// Cloud is set for cloud mirrored stores.
	Cloud *CloudOptions
}

// CloudOptions binds a store to a remote container and scope.
type CloudOptions struct {
	ContainerID string
	Scope       CloudScope
}
