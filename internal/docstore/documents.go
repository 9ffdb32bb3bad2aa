package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmap/internal/orm/document"
	"github.com/conduit-lang/docmap/internal/orm/hooks"
	"github.com/conduit-lang/docmap/internal/orm/model"
	"github.com/conduit-lang/docmap/internal/orm/validation"
)

// ErrMissingID is returned when saving an instance without an identifier
var ErrMissingID = errors.New("instance has no identifier")

// Documents saves and loads mapped instances through a Store. Instances of
// a hierarchy share their root model's key space, so a document saved as a
// subclass can be found through any of its ancestors.
//
// Documents also keeps a value index for keys with uniqueness rules and
// can serve as their validation.UniquenessChecker.
//
// With a hooks executor set, Save runs before_save and after_save hooks
// around the write and Delete runs before_destroy and after_destroy hooks.
type Documents struct {
	store  Store
	logger *zap.Logger
	hooks  *hooks.Executor
}

// NewDocuments creates a document repository on top of store
func NewDocuments(store Store, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{store: store, logger: logger}
}

// WithHooks sets the executor for lifecycle hooks and returns d
func (d *Documents) WithHooks(executor *hooks.Executor) *Documents {
	d.hooks = executor
	return d
}

func (d *Documents) runHooks(ctx context.Context, t hooks.Type, inst *model.Instance) error {
	if d.hooks == nil {
		return nil
	}
	return d.hooks.Run(ctx, t, inst)
}

// Key returns the storage key of the document with the given identifier
func Key(m *model.Model, id interface{}) string {
	return fmt.Sprintf("%s:%v", m.Root().Name(), id)
}

func uniqueKey(m *model.Model, field string, value interface{}) string {
	return fmt.Sprintf("%s:unique:%s:%v", m.Root().Name(), field, value)
}

// Save writes inst and marks it persisted
func (d *Documents) Save(ctx context.Context, inst *model.Instance) error {
	id := inst.ID()
	if id == nil {
		return ErrMissingID
	}
	if err := d.runHooks(ctx, hooks.BeforeSave, inst); err != nil {
		return err
	}

	doc := model.Serialize(inst)
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode %s: %w", inst, err)
	}

	m := inst.Model()
	key := Key(m, id)
	previous, err := d.stored(ctx, m, key)
	if err != nil {
		return err
	}
	if err := d.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if previous != nil {
		if err := d.release(ctx, previous, inst); err != nil {
			return err
		}
	}
	if err := d.index(ctx, inst); err != nil {
		return err
	}

	inst.MarkPersisted()
	d.logger.Debug("document saved",
		zap.String("key", key),
		zap.String("model", m.Name()),
		zap.Int("bytes", len(data)))
	return d.runHooks(ctx, hooks.AfterSave, inst)
}

// uniqueKeys returns the index keys of the unique values held by inst
func uniqueKeys(inst *model.Instance) map[string]string {
	m := inst.Model()
	keys := make(map[string]string)
	for _, rule := range m.Rules().Rules() {
		if rule.Kind != validation.RuleUniqueness {
			continue
		}
		if value := inst.Get(rule.Field); value != nil {
			keys[uniqueKey(m, rule.Field, value)] = rule.Field
		}
	}
	return keys
}

// index records the owner of every unique value held by inst
func (d *Documents) index(ctx context.Context, inst *model.Instance) error {
	owner := []byte(fmt.Sprint(inst.ID()))
	for key, field := range uniqueKeys(inst) {
		if err := d.store.Set(ctx, key, owner); err != nil {
			return fmt.Errorf("index %s.%s: %w", inst.Model().Name(), field, err)
		}
	}
	return nil
}

// release drops the index entries owned by previous that current no longer
// holds. current may be nil to drop them all.
func (d *Documents) release(ctx context.Context, previous, current *model.Instance) error {
	keep := map[string]string{}
	if current != nil {
		keep = uniqueKeys(current)
	}
	owner := fmt.Sprint(previous.ID())
	for key := range uniqueKeys(previous) {
		if _, held := keep[key]; held {
			continue
		}
		indexed, err := d.store.Get(ctx, key)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if string(indexed) != owner {
			continue
		}
		if err := d.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
	}
	return nil
}

// stored loads the document currently saved under key, or nil
func (d *Documents) stored(ctx context.Context, m *model.Model, key string) (*model.Instance, error) {
	data, err := d.store.Get(ctx, key)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var doc document.Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return model.Deserialize(&doc, m), nil
}

// Find loads the document with the given identifier as an instance of m or
// of the descendant named by its discriminator
func (d *Documents) Find(ctx context.Context, m *model.Model, id interface{}) (*model.Instance, error) {
	key := Key(m, id)
	data, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var doc document.Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return model.Deserialize(&doc, m), nil
}

// Exists reports whether a document with the given identifier is stored
func (d *Documents) Exists(ctx context.Context, m *model.Model, id interface{}) (bool, error) {
	return d.store.Exists(ctx, Key(m, id))
}

// Delete removes inst from the store and marks it destroyed
func (d *Documents) Delete(ctx context.Context, inst *model.Instance) error {
	id := inst.ID()
	if id == nil {
		return ErrMissingID
	}

	if err := d.runHooks(ctx, hooks.BeforeDestroy, inst); err != nil {
		return err
	}

	m := inst.Model()
	key := Key(m, id)
	previous, err := d.stored(ctx, m, key)
	if err != nil {
		return err
	}
	if err := d.store.Delete(ctx, key); err != nil {
		return err
	}
	if previous != nil {
		if err := d.release(ctx, previous, nil); err != nil {
			return err
		}
	}
	if err := d.release(ctx, inst, nil); err != nil {
		return err
	}

	inst.Destroy()
	return d.runHooks(ctx, hooks.AfterDestroy, inst)
}

// IsUnique implements validation.UniquenessChecker. A value is unique when
// no stored document holds it, or when the document holding it is record.
func (d *Documents) IsUnique(ctx context.Context, record validation.Record, field string, value interface{}) (bool, error) {
	inst, ok := record.(*model.Instance)
	if !ok {
		return false, fmt.Errorf("uniqueness of %s: unsupported record %T", field, record)
	}

	owner, err := d.store.Get(ctx, uniqueKey(inst.Model(), field, value))
	if IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return string(owner) == fmt.Sprint(inst.ID()), nil
}

// Attach makes d the uniqueness checker of m and its existing descendants
func (d *Documents) Attach(m *model.Model) {
	m.Rules().SetUniquenessChecker(d)
	for _, child := range m.Children() {
		d.Attach(child)
	}
}
