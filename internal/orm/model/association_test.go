package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/document"
)

func embeddedModels(t *testing.T) (person, address, phone *Model) {
	t.Helper()
	reg := NewRegistry()

	address = reg.MustDefine("Address", Embeddable())
	address.Key("city", coerce.String)

	phone = reg.MustDefine("Phone", Embeddable())
	phone.Key("number", coerce.String)

	person = reg.MustDefine("Person")
	person.Key("name", coerce.String)
	person.Key("home", address)

	_, err := person.EmbedOne("address", address)
	require.NoError(t, err)
	_, err = person.EmbedMany("phones", phone)
	require.NoError(t, err)
	return person, address, phone
}

func TestEmbed_RequiresEmbeddableTarget(t *testing.T) {
	reg := NewRegistry()
	person := reg.MustDefine("Person")
	account := reg.MustDefine("Account")

	_, err := person.EmbedOne("account", account)
	assert.ErrorIs(t, err, ErrNotEmbeddable)

	_, err = person.EmbedMany("accounts", nil)
	assert.ErrorIs(t, err, ErrNotEmbeddable)
}

func TestEmbed_Associations(t *testing.T) {
	person, address, phone := embeddedModels(t)

	assocs := person.Associations()
	require.Len(t, assocs, 2)
	assert.Equal(t, "address", assocs[0].Name())
	assert.True(t, assocs[0].IsSingular())
	assert.Same(t, address, assocs[0].Target())
	assert.Equal(t, "phones", assocs[1].Name())
	assert.False(t, assocs[1].IsSingular())
	assert.Same(t, phone, assocs[1].Target())
	assert.Equal(t, "phones: embeds many Phone", assocs[1].String())

	_, ok := person.Association(" address ")
	assert.True(t, ok)
}

func TestEmbed_InheritedBySubclasses(t *testing.T) {
	person, address, _ := embeddedModels(t)
	employee := person.MustSubclass("Employee")

	_, err := person.EmbedOne("office", address)
	require.NoError(t, err)

	_, ok := employee.Association("address")
	assert.True(t, ok)
	_, ok = employee.Association("office")
	assert.True(t, ok, "associations declared later reach existing subclasses")
}

func TestEmbed_AssignAndSerialize(t *testing.T) {
	person, address, _ := embeddedModels(t)

	p := person.New(map[string]interface{}{
		"name":    "Ada",
		"address": map[string]interface{}{"city": "London"},
		"phones": []interface{}{
			map[string]interface{}{"number": "1"},
			map[string]interface{}{"number": "2"},
		},
	})

	addr := p.EmbeddedOne("address")
	require.NotNil(t, addr)
	assert.Same(t, address, addr.Model())
	assert.Equal(t, "London", addr.Get("city"))

	phones := p.EmbeddedMany("phones")
	require.Len(t, phones, 2)
	assert.Equal(t, "2", phones[1].Get("number"))

	doc := Serialize(p)
	assert.Equal(t, []string{"_id", "name", "home", "address", "phones"}, doc.Keys())

	nested, _ := doc.Get("address")
	city, _ := nested.(document.Document).Get("city")
	assert.Equal(t, "London", city)

	items, _ := doc.Get("phones")
	assert.Len(t, items, 2)

	back := Deserialize(&doc, person)
	require.NotNil(t, back)
	assert.Equal(t, "London", back.EmbeddedOne("address").Get("city"))
	assert.Len(t, back.EmbeddedMany("phones"), 2)
}

func TestEmbed_EmptySlots(t *testing.T) {
	person, _, _ := embeddedModels(t)
	p := person.New(nil)

	assert.Nil(t, p.EmbeddedOne("address"))
	assert.Empty(t, p.EmbeddedMany("phones"))

	doc := Serialize(p)
	assert.False(t, doc.Has("address"), "an empty singular slot is left out")
	assert.False(t, doc.Has("phones"), "an empty sequence is left out")

	back := Deserialize(&doc, person)
	assert.Nil(t, back.EmbeddedOne("address"))
	assert.Empty(t, back.EmbeddedMany("phones"))

	assert.ErrorIs(t, p.SetEmbedded("nope", nil), ErrUnknownAssociation)
}

func TestEmbeddedKey_TypedByModel(t *testing.T) {
	person, address, _ := embeddedModels(t)
	p := person.New(nil)

	p.Set("home", map[string]interface{}{"city": "Paris"})
	home, ok := p.Get("home").(*Instance)
	require.True(t, ok)
	assert.Same(t, address, home.Model())
	assert.Same(t, home, p.Get("home"), "repeated reads return the same instance")

	doc := Serialize(p)
	stored, _ := doc.Get("home")
	city, _ := stored.(document.Document).Get("city")
	assert.Equal(t, "Paris", city)
}

// The back-reference is refreshed when the owner reads the slot, not when
// the value is written.
func TestEmbedded_ParentRefreshedOnRead(t *testing.T) {
	person, address, _ := embeddedModels(t)

	t.Run("association slot", func(t *testing.T) {
		child := address.New(map[string]interface{}{"city": "Paris"})
		owner := person.New(nil)
		other := person.New(nil)

		require.NoError(t, owner.SetEmbedded("address", child))
		assert.Nil(t, child.Parent(), "writing does not set the parent")

		owner.EmbeddedOne("address")
		assert.Same(t, owner, child.Parent())

		require.NoError(t, other.SetEmbedded("address", child))
		assert.Same(t, owner, child.Parent(), "still the last reader until the new owner reads")

		other.Embedded("address")
		assert.Same(t, other, child.Parent())
	})

	t.Run("many slot", func(t *testing.T) {
		owner := person.New(map[string]interface{}{
			"phones": []interface{}{map[string]interface{}{"number": "1"}},
		})
		phones := owner.EmbeddedMany("phones")
		require.Len(t, phones, 1)
		assert.Same(t, owner, phones[0].Parent())
	})

	t.Run("model typed key", func(t *testing.T) {
		child := address.New(map[string]interface{}{"city": "Rome"})
		owner := person.New(nil)

		owner.Set("home", child)
		assert.Nil(t, child.Parent())

		assert.Same(t, child, owner.Get("home"))
		assert.Same(t, owner, child.Parent())
	})
}
