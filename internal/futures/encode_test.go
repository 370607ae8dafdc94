package futures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeDictOfLists_RoundTrips(t *testing.T) {
	input := map[string][]string{
		"foo":          {"obj/a.o", "obj/b.o"},
		"bar":          {"obj/a.o"},
		"no_conflict":  {"obj/c.o", "obj/c.o"},
		"empty_values": nil,
	}

	keys, values, table := EncodeDictOfLists(input)
	output := DecodeDictOfLists(keys, values, table)

	assert.Equal(t, input["foo"], output["foo"])
	assert.Equal(t, input["bar"], output["bar"])
	assert.Equal(t, input["no_conflict"], output["no_conflict"])
	assert.Empty(t, output["empty_values"])
}

func TestEncodeDictOfLists_SharesPathTableAcrossKeys(t *testing.T) {
	input := map[string][]string{
		"a": {"obj/shared.o"},
		"b": {"obj/shared.o"},
	}
	_, _, table := EncodeDictOfLists(input)
	assert.Len(t, table, 1, "identical paths should be interned once")
}

func TestDecodeDictOfLists_Empty(t *testing.T) {
	assert.Equal(t, map[string][]string{}, DecodeDictOfLists("", "", nil))
}
