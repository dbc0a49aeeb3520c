package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
)

const upsertUpdateRetries = 5

var resourceInterface = reflect.TypeOf((*models.Resource)(nil)).Elem()

type queryBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// resourceTableMarker is the JSON content of a pagination cursor marker.
type resourceTableMarker struct {
	ID        models.ResourceID `json:"id"`
	CreatedAt models.Time       `json:"created_at"`
}

type tableDescriptor struct {
	tableName        string
	idColName        string
	etagColName      string
	createdAtColName string
	isMutable        bool
}

// ResourceTable provides the standard CRUD operations over a table holding a single kind of resource.
type ResourceTable struct {
	logger.Log
	tableDescriptor
	db *DB
}

func NewResourceTable(db *DB, logFactory logger.LogFactory, resource models.Resource) *ResourceTable {
	return NewResourceTableWithTableName(db, logFactory, "", resource)
}

func NewResourceTableWithTableName(db *DB, logFactory logger.LogFactory, tableName string, resource models.Resource) *ResourceTable {
	desc := mustTableDescriptor(resource, tableName)
	return &ResourceTable{
		db:              db,
		tableDescriptor: desc,
		Log:             logFactory(fmt.Sprintf("%s_table", desc.tableName)),
	}
}

// MustDBModel verifies a resource model matches our conventions and contains suitable "db" tags.
//   - Model must contain one or more "db" tags
//   - All "db" tags must have a common field prefix e.g. repo_ or account_
//   - There must be a prefix_id field e.g. repo_id
//   - If the model is a models.MutableResource it must have a prefix_etag field e.g. repo_etag
func MustDBModel(resource models.Resource) {
	mustTableDescriptor(resource, "")
}

// Dialect returns the goqu dialect for the database driver in use.
func (d *ResourceTable) Dialect() goqu.DialectWrapper {
	return goqu.Dialect(d.db.DriverName())
}

func (d *ResourceTable) TableName() string {
	return d.tableName
}

// ReadByID reads an existing resource, looking it up by ResourceID.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *ResourceTable) ReadByID(ctx context.Context, txOrNil *Tx, id models.ResourceID, resource models.Resource) error {
	return d.ReadWhere(ctx, txOrNil, resource, goqu.Ex{d.idColName: id})
}

// ReadWhere reads an existing resource, looking it up using the supplied where clauses.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *ResourceTable) ReadWhere(ctx context.Context, txOrNil *Tx, resource models.Resource, where ...goqu.Expression) error {
	return d.ReadIn(ctx, txOrNil, resource, d.Dialect().From(d.tableName).Select(resource).Where(where...))
}

// ReadIn reads an existing resource from the supplied select dataset.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *ResourceTable) ReadIn(ctx context.Context, txOrNil *Tx, resource models.Resource, ds *goqu.SelectDataset) error {
	ds = ds.Limit(1)
	return d.db.GoquRead(txOrNil, func(db Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.LogQuery(query, args)
		found, err := db.ScanStructContext(ctx, resource, query, args...)
		if err != nil {
			return MakeStandardDBError(err)
		}
		if !found {
			return gerror.NewErrNotFound("Not Found")
		}
		return nil
	})
}

// ListWhere reads every resource matching the where clauses. Resources must be a pointer to a slice
// of the resource type e.g. &[]*models.Repo. Results are ordered oldest first.
func (d *ResourceTable) ListWhere(ctx context.Context, txOrNil *Tx, resources interface{}, ds *goqu.SelectDataset) error {
	d.mustResourceSlice(resources)
	ds = ds.Order(goqu.I(d.createdAtColName).Asc()).OrderAppend(goqu.I(d.idColName).Asc())
	return d.db.GoquRead(txOrNil, func(db Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.LogQuery(query, args)
		return MakeStandardDBError(db.ScanStructsContext(ctx, resources, query, args...))
	})
}

// Create a new resource. Mutable resources get their initial ETag.
// Returns gerror.ErrAlreadyExists if a resource with matching unique properties already exists.
func (d *ResourceTable) Create(ctx context.Context, txOrNil *Tx, resource models.Resource) (err error) {
	err = resource.Validate()
	if err != nil {
		return gerror.NewErrValidationFailed(fmt.Sprintf("Invalid %s", resource.GetKind())).Wrap(err)
	}
	if mutable, ok := resource.(models.MutableResource); ok {
		eTag, hashErr := computeETag(resource)
		if hashErr != nil {
			return hashErr
		}
		mutable.SetETag(eTag)
		defer func() {
			if err != nil {
				mutable.SetETag("")
			}
		}()
	}
	return d.db.GoquWrite(txOrNil, func(db Writer) error {
		_, err := d.LogInsert(db.Insert(d.tableName).Rows(resource)).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing create query: %w", MakeStandardDBError(err))
		}
		return nil
	})
}

// findOrCreateReadFn must return gerror.ErrNotFound if the resource does not exist
type findOrCreateReadFn func(ctx context.Context, txOrNil *Tx) (models.Resource, error)

// findOrCreateCreateFn must return gerror.ErrAlreadyExists if the resource already exists, and
// return the newly created resource on success
type findOrCreateCreateFn func(ctx context.Context, txOrNil *Tx) (models.Resource, error)

// FindOrCreate creates a resource if it does not exist, otherwise it reads and returns the existing resource.
// A create that loses a race with a concurrent create is retried once, taking the read path.
// Returns the resource as it is in the database, and true iff the resource was created.
func (d *ResourceTable) FindOrCreate(
	ctx context.Context,
	txOrNil *Tx,
	readFn findOrCreateReadFn,
	createFn findOrCreateCreateFn,
) (resource models.Resource, created bool, err error) {
	resource, created, err = d.findOrCreateInner(ctx, txOrNil, readFn, createFn)
	if err != nil && gerror.IsAlreadyExists(err) {
		d.Infof("Conflicting create detected in findOrCreate - trying again once: %v", err)
		resource, created, err = d.findOrCreateInner(ctx, txOrNil, readFn, createFn)
	}
	return resource, created, err
}

func (d *ResourceTable) findOrCreateInner(
	ctx context.Context,
	txOrNil *Tx,
	readFn findOrCreateReadFn,
	createFn findOrCreateCreateFn,
) (models.Resource, bool, error) {
	resource, err := readFn(ctx, txOrNil)
	if err == nil {
		return resource, false, nil
	}
	if !gerror.IsNotFound(err) {
		return nil, false, fmt.Errorf("error reading resource: %w", err)
	}
	err = d.db.WithSavepoint(ctx, txOrNil, "find_or_create", func() error {
		var createErr error
		resource, createErr = createFn(ctx, txOrNil)
		return createErr
	})
	if err != nil {
		return nil, false, fmt.Errorf("error creating resource: %w", err)
	}
	return resource, true, nil
}

// DeleteByID idempotently deletes one resource by id.
func (d *ResourceTable) DeleteByID(ctx context.Context, txOrNil *Tx, id models.ResourceID) error {
	return d.DeleteWhere(ctx, txOrNil, goqu.Ex{d.idColName: id})
}

// DeleteWhere idempotently deletes one or more resources that match the supplied where clauses.
func (d *ResourceTable) DeleteWhere(ctx context.Context, txOrNil *Tx, where ...goqu.Expression) error {
	return d.db.GoquWrite(txOrNil, func(db Writer) error {
		_, err := d.logDelete(db.Delete(d.tableName).Where(where...)).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing delete query: %w", MakeStandardDBError(err))
		}
		return nil
	})
}

// UpdateByID updates an existing resource, overriding all previous values using the supplied model.
// Mutable resources are optimistically locked on their ETag unless it is models.ETagAny.
// Returns gerror.ErrOptimisticLockFailed if there is an ETag mismatch.
func (d *ResourceTable) UpdateByID(ctx context.Context, txOrNil *Tx, resource models.Resource) (err error) {
	err = resource.Validate()
	if err != nil {
		return gerror.NewErrValidationFailed(fmt.Sprintf("Invalid %s", resource.GetKind())).Wrap(err)
	}
	where := []goqu.Expression{goqu.Ex{d.idColName: resource.GetID()}}
	mutable, isMutable := resource.(models.MutableResource)
	if isMutable {
		origETag := mutable.GetETag()
		eTag, hashErr := computeETag(resource)
		if hashErr != nil {
			return hashErr
		}
		mutable.SetETag(eTag)
		if origETag != models.ETagAny {
			where = append(where, goqu.Ex{d.etagColName: origETag})
		}
		defer func() {
			if err != nil {
				mutable.SetETag(origETag)
			}
		}()
	}
	return d.db.GoquWrite(txOrNil, func(db Writer) error {
		res, err := d.LogUpdate(db.Update(d.tableName).Set(resource).Where(where...)).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing update query: %w", MakeStandardDBError(err))
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading rows affected: %w", MakeStandardDBError(err))
		}
		if rowsAffected == 0 {
			if !isMutable {
				return gerror.NewErrNotFound(fmt.Sprintf("%s does not exist", resource.GetID()))
			}
			return gerror.NewErrOptimisticLockFailed("ETag does not match")
		}
		return nil
	})
}

// upsertReadFn must return gerror.ErrNotFound if the resource does not exist
type upsertReadFn func(txOrNil *Tx) (models.Resource, error)

// upsertCreateFn must return gerror.ErrAlreadyExists if the resource already exists
type upsertCreateFn func(txOrNil *Tx) error

// upsertUpdateFn inspects the resource returned by the upsertReadFn and updates it in the database
// if necessary. Returns true if the update was performed or false if no update was required.
// Must return gerror.ErrOptimisticLockFailed if the resource was updated in between read and update.
type upsertUpdateFn func(txOrNil *Tx, resource models.Resource) (bool, error)

// Upsert creates a resource if it does not exist, otherwise it updates it using updateFn.
// Returns true,false if the resource was created, false,true if the resource was updated, and
// false,false if neither create nor update was necessary.
func (d *ResourceTable) Upsert(ctx context.Context, txOrNil *Tx, readFn upsertReadFn, createFn upsertCreateFn, updateFn upsertUpdateFn) (created bool, updated bool, err error) {
	created, updated, err = d.upsertInner(txOrNil, readFn, createFn, updateFn)
	if err != nil && gerror.IsAlreadyExists(err) {
		d.Infof("Conflicting create detected in upsert - trying again once: %v", err)
		created, updated, err = d.upsertInner(txOrNil, readFn, createFn, updateFn)
	}
	for i := 0; i < upsertUpdateRetries && err != nil; i++ {
		if !gerror.IsOptimisticLockFailed(err) {
			return false, false, fmt.Errorf("error upserting resource: %w", err)
		}
		d.Infof("Conflicting update detected in upsert - trying again (%d/%d attempts): %v", i+1, upsertUpdateRetries, err)
		created, updated, err = d.upsertInner(txOrNil, readFn, createFn, updateFn)
	}
	return created, updated, err
}

func (d *ResourceTable) upsertInner(txOrNil *Tx, readFn upsertReadFn, createFn upsertCreateFn, updateFn upsertUpdateFn) (bool, bool, error) {
	resource, err := readFn(txOrNil)
	if err != nil {
		if !gerror.IsNotFound(err) {
			return false, false, fmt.Errorf("error reading resource: %w", err)
		}
		if err := createFn(txOrNil); err != nil {
			return false, false, fmt.Errorf("error creating resource: %w", err)
		}
		return true, false, nil
	}
	updated, err := updateFn(txOrNil, resource)
	if err != nil {
		return false, false, fmt.Errorf("error updating resource: %w", err)
	}
	return false, updated, nil
}

// ListIn lists resources in the specified select dataset with pagination.
// Resources are listed newest first with ID as the tie-breaker; any ordering in the supplied
// dataset is ignored. Resources must be a pointer to a slice of the resource type e.g. &[]*models.Repo
func (d *ResourceTable) ListIn(ctx context.Context, txOrNil *Tx, resources interface{}, pagination models.Pagination, ds *goqu.SelectDataset) (*models.Cursor, error) {
	sliceV := d.mustResourceSlice(resources)
	reverse := pagination.Cursor != nil && pagination.Cursor.Direction == models.CursorDirectionPrev

	ds = ds.Limit(uint(pagination.Limit + 1))
	if pagination.Cursor == nil {
		ds = ds.Order(goqu.I(d.createdAtColName).Desc()).OrderAppend(goqu.I(d.idColName).Desc())
	} else {
		var marker resourceTableMarker
		err := json.Unmarshal([]byte(pagination.Cursor.Marker), &marker)
		if err != nil {
			return nil, gerror.NewErrValidationFailed("Invalid cursor").Wrap(err)
		}
		createdAt, id := goqu.C(d.createdAtColName), goqu.C(d.idColName)
		if reverse {
			// Read the previous page oldest first, then re-order it newest first
			ds = ds.Where(goqu.Or(
				createdAt.Gt(marker.CreatedAt),
				goqu.And(createdAt.Eq(marker.CreatedAt), id.Gt(marker.ID)),
			)).Order(goqu.I(d.createdAtColName).Asc()).OrderAppend(goqu.I(d.idColName).Asc())
			ds = d.Dialect().From(ds).
				Select(goqu.I("*")).
				Order(goqu.C(d.createdAtColName).Desc()).
				OrderAppend(goqu.C(d.idColName).Desc())
		} else {
			ds = ds.Where(goqu.Or(
				createdAt.Lt(marker.CreatedAt),
				goqu.And(createdAt.Eq(marker.CreatedAt), id.Lt(marker.ID)),
			)).Order(goqu.I(d.createdAtColName).Desc()).OrderAppend(goqu.I(d.idColName).Desc())
		}
	}

	err := d.db.GoquRead(txOrNil, func(db Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.LogQuery(query, args)
		return db.ScanStructsContext(ctx, resources, query, args...)
	})
	if err != nil {
		return nil, MakeStandardDBError(err)
	}
	if sliceV.Len() == 0 {
		return nil, nil
	}

	cursor := &models.Cursor{}
	if sliceV.Len() > pagination.Limit {
		// We read one more record than needed, so there is another page in the direction of travel
		if reverse {
			sliceV.Set(sliceV.Slice(1, pagination.Limit+1))
			cursor.Prev, err = makeDirectionalCursor(models.CursorDirectionPrev, sliceV.Index(0))
		} else {
			sliceV.Set(sliceV.Slice(0, pagination.Limit))
			cursor.Next, err = makeDirectionalCursor(models.CursorDirectionNext, sliceV.Index(sliceV.Len()-1))
		}
		if err != nil {
			return nil, err
		}
	}
	// Having arrived via a cursor there is always a page to go back to
	if pagination.Cursor != nil {
		if reverse {
			cursor.Next, err = makeDirectionalCursor(models.CursorDirectionNext, sliceV.Index(sliceV.Len()-1))
		} else {
			cursor.Prev, err = makeDirectionalCursor(models.CursorDirectionPrev, sliceV.Index(0))
		}
		if err != nil {
			return nil, err
		}
	}
	return cursor, nil
}

func makeDirectionalCursor(direction models.CursorDirection, v reflect.Value) (*models.DirectionalCursor, error) {
	resource := v.Interface().(models.Resource)
	data, err := json.Marshal(&resourceTableMarker{ID: resource.GetID(), CreatedAt: resource.GetCreatedAt()})
	if err != nil {
		return nil, fmt.Errorf("error JSON encoding cursor marker: %w", err)
	}
	return &models.DirectionalCursor{Direction: direction, Marker: string(data)}, nil
}

// mustResourceSlice panics unless resources is a pointer to a slice of models.Resource.
func (d *ResourceTable) mustResourceSlice(resources interface{}) reflect.Value {
	slicePtr := reflect.TypeOf(resources)
	if slicePtr.Kind() != reflect.Ptr {
		d.Panicf("expected pointer to slice, found: %T", resources)
	}
	sliceT := slicePtr.Elem()
	if sliceT.Kind() != reflect.Slice {
		d.Panicf("expected slice, found: %T", resources)
	}
	if !sliceT.Elem().Implements(resourceInterface) {
		d.Panicf("expected slice of resource, found: %s", sliceT.Elem().Kind())
	}
	return reflect.ValueOf(resources).Elem()
}

func computeETag(resource models.Resource) (models.ETag, error) {
	hash, err := hashstructure.Hash(resource, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("error calculating resource hash: %w", err)
	}
	return models.ETag(fmt.Sprintf("\"%x\"", hash)), nil
}

// MakeStandardDBError converts driver errors for unique violations into gerror.ErrAlreadyExists.
func MakeStandardDBError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return gerror.NewErrAlreadyExists("Resource already exists").Wrap(sqliteErr)
		}
		if sqliteErr.Code == sqlite3.ErrNotFound {
			return gerror.NewErrNotFound("Resource not found").Wrap(sqliteErr)
		}
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return gerror.NewErrAlreadyExists("Resource already exists").Wrap(pgErr)
		case "P0002": // no_data_found
			return gerror.NewErrNotFound("Resource not found").Wrap(pgErr)
		}
	}
	return err
}

// LogInsert logs an insert query via the configured logger.
func (d *ResourceTable) LogInsert(ds *goqu.InsertDataset) *goqu.InsertDataset {
	d.logQueryDS(ds)
	return ds
}

// LogUpdate logs an update query via the configured logger.
func (d *ResourceTable) LogUpdate(ds *goqu.UpdateDataset) *goqu.UpdateDataset {
	d.logQueryDS(ds)
	return ds
}

func (d *ResourceTable) logDelete(ds *goqu.DeleteDataset) *goqu.DeleteDataset {
	d.logQueryDS(ds)
	return ds
}

func (d *ResourceTable) logQueryDS(ds queryBuilder) {
	query, args, err := ds.ToSQL()
	if err != nil {
		d.Errorf("Error generating query: %v", err)
		return
	}
	d.LogQuery(query, args)
}

// LogQuery logs a SQL query and args at trace level.
func (d *ResourceTable) LogQuery(query string, args []interface{}) {
	d.WithFields(logger.Fields{"query": query, "args": args}).Trace()
}

// mustTableDescriptor generates a table descriptor for a resource model. Panics if the model does not
// match our conventions; see MustDBModel.
func mustTableDescriptor(resource models.Resource, tableNameOverride string) tableDescriptor {
	fieldMap := make(map[string]struct{})
	collectDBTags(reflect.TypeOf(resource), fieldMap)

	prefix := ""
	for val := range fieldMap {
		candidate := strings.TrimSuffix(val, idColSuffix)
		if prefix == "" {
			prefix = candidate
			continue
		}
		prefix = commonPrefix(prefix, candidate)
		if prefix == "" {
			panic("All db fields must be prefixed with the table name")
		}
	}
	prefix = strings.TrimSuffix(prefix, "_")
	if prefix == "" {
		panic("Unable to determine db field prefix")
	}

	tableName := tableNameOverride
	if tableName == "" {
		tableName = prefix + "s"
	}
	required := []string{prefix + idColSuffix, prefix + createdAtColSuffix}
	_, isMutable := resource.(models.MutableResource)
	if isMutable {
		required = append(required, prefix+eTagColSuffix)
	}
	for _, field := range required {
		if _, ok := fieldMap[field]; !ok {
			panic(fmt.Sprintf("expected %q model to contain a field with a \"db\" tag matching %q", tableName, field))
		}
	}

	return tableDescriptor{
		tableName:        tableName,
		idColName:        prefix + idColSuffix,
		createdAtColName: prefix + createdAtColSuffix,
		etagColName:      prefix + eTagColSuffix,
		isMutable:        isMutable,
	}
}

// commonPrefix returns the longest common prefix of a and b that ends on a '_' boundary
// (or is one of the two strings in full).
func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	k := 0
	for k < n && a[k] == b[k] {
		k++
	}
	if k == len(a) && (k == len(b) || b[k] == '_') {
		return a
	}
	if k == len(b) && (k == len(a) || a[k] == '_') {
		return b
	}
	for k > 0 && a[k-1] != '_' {
		k--
	}
	return a[:k]
}

// collectDBTags records the db tag values of all fields in the flattened t.
func collectDBTags(t reflect.Type, fieldMap map[string]struct{}) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			collectDBTags(field.Type, fieldMap)
			continue
		}
		if val, ok := field.Tag.Lookup(dbTagName); ok {
			fieldMap[val] = struct{}{}
		}
	}
}

const (
	dbTagName          = "db"
	idColSuffix        = "_id"
	eTagColSuffix      = "_etag"
	createdAtColSuffix = "_created_at"
)
