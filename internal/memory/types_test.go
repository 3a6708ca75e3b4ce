package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelationshipType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RelationshipType
		wantErr bool
	}{
		{name: "canonical", input: "parent", want: RelationParent},
		{name: "uppercase normalized", input: "PARENT", want: RelationParent},
		{name: "mixed case", input: "Version-Of", want: RelationVersionOf},
		{name: "surrounding whitespace", input: "  child ", want: RelationChild},
		{name: "hyphenated kind", input: "example-of", want: RelationExampleOf},
		{name: "unknown kind", input: "frenemy", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "underscored variant rejected", input: "version_of", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelationshipType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownRelationshipType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRelationshipTypeCoversVocabulary(t *testing.T) {
	all := []RelationshipType{
		RelationParent, RelationChild, RelationReference, RelationRelated,
		RelationCause, RelationEffect, RelationDuplicate, RelationVersionOf,
		RelationPartOf, RelationContains, RelationPrecedes, RelationFollows,
		RelationExampleOf, RelationInstanceOf, RelationGeneralizes,
		RelationSpecializes, RelationSynonym, RelationAntonym,
	}

	for _, rt := range all {
		got, err := ParseRelationshipType(rt.String())
		require.NoError(t, err, "vocabulary kind %q must parse", rt)
		assert.Equal(t, rt, got)
	}
}
