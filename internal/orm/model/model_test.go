package model

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmap/internal/orm/coerce"
	"github.com/conduit-lang/docmap/internal/orm/document"
	"github.com/conduit-lang/docmap/internal/orm/schema"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

type registration struct {
	kind  string
	field string
}

type recordingCollaborator struct {
	calls []registration
}

func (c *recordingCollaborator) add(kind, field string) {
	c.calls = append(c.calls, registration{kind: kind, field: field})
}

func (c *recordingCollaborator) RegisterPresence(field string)   { c.add("presence", field) }
func (c *recordingCollaborator) RegisterUniqueness(field string) { c.add("uniqueness", field) }
func (c *recordingCollaborator) RegisterNumeric(field string, _ bool) {
	c.add("numeric", field)
}
func (c *recordingCollaborator) RegisterFormat(field string, _ *regexp.Regexp) {
	c.add("format", field)
}
func (c *recordingCollaborator) RegisterInclusion(field string, _ []interface{}) {
	c.add("inclusion", field)
}
func (c *recordingCollaborator) RegisterExclusion(field string, _ []interface{}) {
	c.add("exclusion", field)
}
func (c *recordingCollaborator) RegisterLength(field string, _ validation.LengthOptions) {
	c.add("length", field)
}

func TestRegistry_Define(t *testing.T) {
	reg := NewRegistry()

	user, err := reg.Define("User")
	require.NoError(t, err)

	key, ok := user.Lookup("_id")
	require.True(t, ok)
	assert.Equal(t, coerce.ObjectID, key.Type())

	_, err = reg.Define("User")
	assert.ErrorIs(t, err, ErrDuplicateModel)

	_, err = reg.Define("")
	assert.ErrorIs(t, err, ErrInvalidModelName)

	got, err := reg.Resolve("User")
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = reg.Resolve("Nope")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestDeclareKey_PropagatesInEitherOrder(t *testing.T) {
	t.Run("declared before subclass", func(t *testing.T) {
		reg := NewRegistry()
		base := reg.MustDefine("Base")
		base.Key("title", coerce.String)
		sub := base.MustSubclass("Sub")

		assert.True(t, sub.HasKey("title"))
	})

	t.Run("declared after subclass", func(t *testing.T) {
		reg := NewRegistry()
		base := reg.MustDefine("Base")
		sub := base.MustSubclass("Sub")
		grand := sub.MustSubclass("Grand")
		base.Key("title", coerce.String)

		assert.True(t, sub.HasKey("title"))
		assert.True(t, grand.HasKey("title"))
		_, ok := grand.Accessor("title")
		assert.True(t, ok)
	})

	t.Run("subclass keys stay local", func(t *testing.T) {
		reg := NewRegistry()
		base := reg.MustDefine("Base")
		sub := base.MustSubclass("Sub")
		sub.Key("extra", coerce.Integer)

		assert.False(t, base.HasKey("extra"))
	})
}

func TestDeclareKey_Redeclare(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Post")
	m.Key("title", coerce.String)
	m.Key("views", coerce.String)
	m.Key("title", coerce.Integer)

	keys := m.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, []string{"_id", "title", "views"}, []string{keys[0].Name(), keys[1].Name(), keys[2].Name()})
	assert.Equal(t, coerce.Integer, keys[1].Type())
}

func TestDeclareKey_CanonicalNames(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Post")
	m.Key("  title ", coerce.String)

	assert.True(t, m.HasKey("title"))
	assert.True(t, m.HasKey(" title"))

	inst := m.New(map[string]interface{}{" title ": "Hello"})
	assert.Equal(t, "Hello", inst.Get("title"))

	_, err := m.DeclareKey("   ", coerce.String, schema.Options{})
	assert.ErrorIs(t, err, ErrInvalidKeyName)
}

func TestDeclareKey_InvalidAccessorName(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Thing")
	m.Key("2bad", coerce.String)

	assert.True(t, m.HasKey("2bad"))
	_, ok := m.Accessor("2bad")
	assert.False(t, ok, "no accessor for a name that is not an identifier")
	assert.NotContains(t, m.Accessors(), "2bad")

	inst := m.New(nil)
	inst.Set("2bad", "value")
	assert.Equal(t, "value", inst.Get("2bad"))
	assert.True(t, inst.Present("2bad"))

	doc := Serialize(inst)
	v, _ := doc.Get("2bad")
	assert.Equal(t, "value", v)
}

func TestDeclareKey_OptionErrors(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Thing")

	_, err := m.DeclareKey("name", coerce.String, schema.Options{Length: "five"})
	assert.ErrorIs(t, err, validation.ErrInvalidLengthOption)
	assert.False(t, m.HasKey("name"))

	_, err = m.DeclareKey("code", coerce.String, schema.Options{Format: "(["})
	assert.ErrorIs(t, err, validation.ErrInvalidFormatOption)
	assert.False(t, m.HasKey("code"))
}

func TestDeclareKey_ValidationDerivation(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Person")
	_, err := m.DeclareKey("name", coerce.String, schema.Options{Required: true, Length: 5})
	require.NoError(t, err)

	rules := m.Rules().RulesFor("name")
	require.Len(t, rules, 2)
	assert.Equal(t, validation.RulePresence, rules[0].Kind)
	assert.Equal(t, validation.RuleLength, rules[1].Kind)

	length := rules[1].Length
	require.NotNil(t, length.Minimum)
	require.NotNil(t, length.Maximum)
	assert.Equal(t, 0, *length.Minimum)
	assert.Equal(t, 5, *length.Maximum)
	assert.Nil(t, length.Is)
	assert.Nil(t, length.Within)
}

func TestDeclareKey_RedeclareRebindsRules(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Person")
	m.MustDeclareKey("name", coerce.String, schema.Options{Required: true})
	m.MustDeclareKey("name", coerce.String, schema.Options{Unique: true})

	rules := m.Rules().RulesFor("name")
	require.Len(t, rules, 1)
	assert.Equal(t, validation.RuleUniqueness, rules[0].Kind)
}

func TestAddCollaborator(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Person")
	m.MustDeclareKey("email", coerce.String, schema.Options{Required: true, Unique: true})

	c := &recordingCollaborator{}
	require.NoError(t, m.AddCollaborator(c))
	m.MustDeclareKey("age", coerce.Integer, schema.Options{Numeric: true})

	assert.Equal(t, []registration{
		{"presence", "email"},
		{"uniqueness", "email"},
		{"numeric", "age"},
	}, c.calls)

	t.Run("subclass", func(t *testing.T) {
		reg := NewRegistry()
		person := reg.MustDefine("Person")
		c := &recordingCollaborator{}
		require.NoError(t, person.AddCollaborator(c))
		admin := person.MustSubclass("Admin")

		own := &recordingCollaborator{}
		require.NoError(t, admin.AddCollaborator(own))
		own.calls = nil

		person.MustDeclareKey("name", coerce.String, schema.Options{Required: true, Length: 5})
		assert.Equal(t, []registration{
			{"presence", "name"},
			{"length", "name"},
		}, c.calls, "inherited collaborators are bound once per declaration")
		assert.Equal(t, []registration{
			{"presence", "name"},
			{"length", "name"},
		}, own.calls, "a subclass binds propagated keys to its own collaborators")

		c.calls = nil
		admin.MustDeclareKey("level", coerce.Integer, schema.Options{Required: true})
		assert.Equal(t, []registration{{"presence", "level"}}, c.calls)
	})
}

func TestRegistry_Seal(t *testing.T) {
	reg := NewRegistry()
	m := reg.MustDefine("Person")
	reg.Seal()
	assert.True(t, reg.Sealed())

	_, err := reg.Define("Other")
	assert.ErrorIs(t, err, ErrSealed)

	_, err = m.Subclass("Admin")
	assert.ErrorIs(t, err, ErrSealed)

	_, err = m.DeclareKey("name", coerce.String, schema.Options{})
	assert.ErrorIs(t, err, ErrSealed)

	inst := m.New(nil)
	inst.Set("nickname", "ada")
	assert.True(t, m.HasKey("nickname"), "ad hoc keys are still declared after sealing")
	assert.Equal(t, "ada", inst.Get("nickname"))
}

func TestSubclass_Discriminator(t *testing.T) {
	reg := NewRegistry()
	user := reg.MustDefine("User")
	user.Key("name", coerce.String)
	assert.False(t, user.HasKey(document.TypeField))

	admin := user.MustSubclass("Admin")
	assert.True(t, user.HasKey(document.TypeField))
	assert.True(t, admin.IsA(user))
	assert.False(t, user.IsA(admin))
	assert.Same(t, user, admin.Parent())
	assert.Same(t, user, admin.Root())
	assert.Equal(t, []*Model{admin}, user.Children())

	a := admin.New(map[string]interface{}{"name": "Grace"})
	assert.Equal(t, "Admin", a.Get("_type"))

	u := user.New(nil)
	doc := Serialize(u)
	v, _ := doc.Get(document.TypeField)
	assert.Equal(t, "User", v)

	_, err := user.Subclass("Admin")
	assert.ErrorIs(t, err, ErrDuplicateModel)
}

func TestGetStats(t *testing.T) {
	reg := NewRegistry()
	addr := reg.MustDefine("Address", Embeddable())
	person := reg.MustDefine("Person")
	person.MustDeclareKey("name", coerce.String, schema.Options{Required: true})
	_, err := person.EmbedOne("address", addr)
	require.NoError(t, err)

	stats := reg.GetStats()
	assert.Equal(t, 2, stats.Models)
	assert.Equal(t, 3, stats.Keys)
	assert.Equal(t, 1, stats.Associations)
	assert.Equal(t, 1, stats.Rules)
	assert.Equal(t, 1, stats.Embeddable)
}

func TestRegistry_DeserializeByName(t *testing.T) {
	reg := NewRegistry()
	reg.MustDefine("Person").Key("name", coerce.String)

	doc := document.New()
	doc.Set("name", "Ada")

	inst, err := reg.Deserialize(&doc, "Person")
	require.NoError(t, err)
	assert.Equal(t, "Ada", inst.Get("name"))

	_, err = reg.Deserialize(&doc, "Nope")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestModel_AsKeyType(t *testing.T) {
	reg := NewRegistry()
	addr := reg.MustDefine("Address", Embeddable())
	addr.Key("city", coerce.String)

	typed := addr.ToTyped(map[string]interface{}{"city": "Paris"})
	inst, ok := typed.(*Instance)
	require.True(t, ok)
	assert.Equal(t, "Paris", inst.Get("city"))

	assert.Nil(t, addr.ToTyped(nil))
	assert.Nil(t, addr.ToTyped(42))

	out, ok := addr.ToDocument(inst).(document.Document)
	require.True(t, ok)
	city, _ := out.Get("city")
	assert.Equal(t, "Paris", city)

	assert.Nil(t, inst.ID(), "loaded documents get no generated identifier")
}
