package flows

import (
	"fmt"
	"strings"
)

const (
	tabNotFoundTemplateConstant              = "tab %q not found"
	ambiguousTabTemplateConstant             = "tab label %q matches %d tabs: %s"
	unresolvedReferencesTemplateConstant     = "%d unresolved references: %s"
	unresolvedReferenceTemplateConstant      = "%s %s of node %s"
	duplicateIdentifiersTemplateConstant     = "duplicate node identifiers: %s"
	attributeDecodingTemplateConstant        = "unable to decode node attribute %q: %v"
	attributeDecodingMessageTemplateConstant = "unable to decode node: %s"
	documentDecodingTemplateConstant         = "unable to decode node: %v"
	attributeEncodingTemplateConstant        = "unable to encode node attribute %q: %v"
	identifierListSeparatorConstant          = ", "
)

// ReferenceRelation names the edge kind carrying an unresolved reference.
type ReferenceRelation string

// Reference relations.
const (
	ReferenceRelationWire ReferenceRelation = ReferenceRelation("wire")
	ReferenceRelationLink ReferenceRelation = ReferenceRelation("link")
)

// TabNotFoundError indicates no tab carries the requested label.
type TabNotFoundError struct {
	Label string
}

// Error describes the missing tab.
func (notFoundError TabNotFoundError) Error() string {
	return fmt.Sprintf(tabNotFoundTemplateConstant, notFoundError.Label)
}

// AmbiguousTabError indicates several tabs share the requested label.
type AmbiguousTabError struct {
	Label          string
	TabIdentifiers []string
}

// Error describes the ambiguous label.
func (ambiguousError AmbiguousTabError) Error() string {
	return fmt.Sprintf(ambiguousTabTemplateConstant, ambiguousError.Label, len(ambiguousError.TabIdentifiers), strings.Join(ambiguousError.TabIdentifiers, identifierListSeparatorConstant))
}

// UnresolvedReference is a wire or link pointing at an identifier absent from the snapshot.
type UnresolvedReference struct {
	NodeID   string
	Target   string
	Relation ReferenceRelation
}

// UnresolvedReferenceError lists every dangling reference of a snapshot.
type UnresolvedReferenceError struct {
	References []UnresolvedReference
}

// Error describes the dangling references.
func (referenceError UnresolvedReferenceError) Error() string {
	descriptions := make([]string, 0, len(referenceError.References))
	for _, reference := range referenceError.References {
		descriptions = append(descriptions, fmt.Sprintf(unresolvedReferenceTemplateConstant, reference.Relation, reference.Target, reference.NodeID))
	}
	return fmt.Sprintf(unresolvedReferencesTemplateConstant, len(referenceError.References), strings.Join(descriptions, identifierListSeparatorConstant))
}

// DuplicateIdentifierError lists identifiers used by more than one node.
type DuplicateIdentifierError struct {
	Identifiers []string
}

// Error describes the duplicated identifiers.
func (duplicateError DuplicateIdentifierError) Error() string {
	return fmt.Sprintf(duplicateIdentifiersTemplateConstant, strings.Join(duplicateError.Identifiers, identifierListSeparatorConstant))
}

// AttributeDecodingError reports a node attribute whose JSON does not match its expected shape.
type AttributeDecodingError struct {
	Attribute string
	Message   string
	Cause     error
}

// Error describes the decoding failure.
func (decodingError AttributeDecodingError) Error() string {
	if len(decodingError.Message) > 0 {
		return fmt.Sprintf(attributeDecodingMessageTemplateConstant, decodingError.Message)
	}
	if len(decodingError.Attribute) == 0 {
		return fmt.Sprintf(documentDecodingTemplateConstant, decodingError.Cause)
	}
	return fmt.Sprintf(attributeDecodingTemplateConstant, decodingError.Attribute, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError AttributeDecodingError) Unwrap() error {
	return decodingError.Cause
}

// AttributeEncodingError reports a node attribute that could not be encoded.
type AttributeEncodingError struct {
	Attribute string
	Cause     error
}

// Error describes the encoding failure.
func (encodingError AttributeEncodingError) Error() string {
	return fmt.Sprintf(attributeEncodingTemplateConstant, encodingError.Attribute, encodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (encodingError AttributeEncodingError) Unwrap() error {
	return encodingError.Cause
}
