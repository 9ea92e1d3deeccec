package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	secretSourceSeparatorConstant              = ":"
	environmentSecretSourceTypeValueConstant   = "env"
	fileSecretSourceTypeValueConstant          = "file"
	secretSourceMissingErrorMessageConstant    = "password source must be provided"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "password file path must be provided"
	environmentLookupNilErrorMessageConstant   = "environment lookup function not configured"
	fileReaderNilErrorMessageConstant          = "file reader function not configured"
	environmentSecretMissingTemplateConstant   = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read password file %s: %w"
	fileSecretEmptyErrorTemplateConstant       = "password file %s is empty"
	unsupportedSecretSourceTemplateConstant    = "unsupported password source type %q"
	resolveCredentialsErrorTemplateConstant    = "unable to resolve password for %s: %w"
	fileLineTerminatorCharactersConstant       = "\r\n"
)

// SecretSourceType enumerates the supported password retrieval mechanisms.
type SecretSourceType string

// Secret source type enumerations.
const (
	SecretSourceTypeEnvironment SecretSourceType = SecretSourceType(environmentSecretSourceTypeValueConstant)
	SecretSourceTypeFile        SecretSourceType = SecretSourceType(fileSecretSourceTypeValueConstant)
)

// SecretSource specifies where a password is read from.
type SecretSource struct {
	Type      SecretSourceType
	Reference string
}

// AdminCredentials names the Node-RED admin account of one runtime instance.
// An empty username means the instance does not require authentication.
type AdminCredentials struct {
	Username       string `mapstructure:"username"`
	PasswordSource string `mapstructure:"password_source"`
}

// Required reports whether the instance expects an authenticated session.
func (credentials AdminCredentials) Required() bool {
	return len(strings.TrimSpace(credentials.Username)) > 0
}

// SecretResolver retrieves secrets from configured sources.
type SecretResolver interface {
	ResolveSecret(resolutionContext context.Context, source SecretSource) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// NewSecretResolver creates a secret resolver with optional dependency overrides.
func NewSecretResolver(environmentLookup EnvironmentLookup, fileReader FileReader) SecretResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	return &secretResolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
	}
}

// ParseSecretSource interprets textual password source declarations: env:NAME,
// file:/path, or a bare NAME read from the environment.
func ParseSecretSource(sourceValue string) (SecretSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return SecretSource{}, errors.New(secretSourceMissingErrorMessageConstant)
	}

	components := strings.SplitN(trimmedValue, secretSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return SecretSource{Type: SecretSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentSecretSourceTypeValueConstant:
		if len(reference) == 0 {
			return SecretSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return SecretSource{Type: SecretSourceTypeEnvironment, Reference: reference}, nil
	case fileSecretSourceTypeValueConstant:
		if len(reference) == 0 {
			return SecretSource{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return SecretSource{Type: SecretSourceTypeFile, Reference: reference}, nil
	default:
		return SecretSource{}, fmt.Errorf(unsupportedSecretSourceTemplateConstant, sourceType)
	}
}

// ResolvePassword parses the password source of the credentials and reads the secret it names.
func ResolvePassword(resolutionContext context.Context, resolver SecretResolver, credentials AdminCredentials) (string, error) {
	source, parseError := ParseSecretSource(credentials.PasswordSource)
	if parseError != nil {
		return "", fmt.Errorf(resolveCredentialsErrorTemplateConstant, strings.TrimSpace(credentials.Username), parseError)
	}
	password, resolveError := resolver.ResolveSecret(resolutionContext, source)
	if resolveError != nil {
		return "", fmt.Errorf(resolveCredentialsErrorTemplateConstant, strings.TrimSpace(credentials.Username), resolveError)
	}
	return password, nil
}

type secretResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

func (resolver *secretResolver) ResolveSecret(resolutionContext context.Context, source SecretSource) (string, error) {
	if contextError := resolutionContext.Err(); contextError != nil {
		return "", contextError
	}
	switch source.Type {
	case SecretSourceTypeEnvironment:
		if resolver.environmentLookup == nil {
			return "", errors.New(environmentLookupNilErrorMessageConstant)
		}
		value, found := resolver.environmentLookup(source.Reference)
		if !found || len(value) == 0 {
			return "", fmt.Errorf(environmentSecretMissingTemplateConstant, source.Reference)
		}
		return value, nil
	case SecretSourceTypeFile:
		if resolver.fileReader == nil {
			return "", errors.New(fileReaderNilErrorMessageConstant)
		}
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, source.Reference, readError)
		}
		// Only the line terminator is dropped; surrounding spaces belong to the password.
		secret := strings.TrimRight(string(contents), fileLineTerminatorCharactersConstant)
		if len(secret) == 0 {
			return "", fmt.Errorf(fileSecretEmptyErrorTemplateConstant, source.Reference)
		}
		return secret, nil
	default:
		return "", fmt.Errorf(unsupportedSecretSourceTemplateConstant, source.Type)
	}
}
