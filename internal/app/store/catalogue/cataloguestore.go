// internal/app/store/catalogue/cataloguestore.go
package cataloguestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds the module/major reference data loaded by the catalogue
// ETL. The live system only reads it; writes happen through the
// guarded load endpoint.
type Store struct {
	modules *mongo.Collection
	majors  *mongo.Collection
	meta    *mongo.Collection
}

var ErrNotFound = errors.New("catalogue entry not found")

const metaDocID = "catalogue"

func New(db *mongo.Database) *Store {
	return &Store{
		modules: db.Collection("modules"),
		majors:  db.Collection("majors"),
		meta:    db.Collection("catalogue_meta"),
	}
}

func (s *Store) GetModule(ctx context.Context, code string) (models.Module, error) {
	var m models.Module
	err := s.modules.FindOne(ctx, bson.M{"_id": normalizeCode(code)}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Module{}, ErrNotFound
	}
	if err != nil {
		return models.Module{}, err
	}
	return m, nil
}

// ModuleExists is the validation hook used by group creation.
func (s *Store) ModuleExists(ctx context.Context, code string) (bool, error) {
	err := s.modules.FindOne(ctx, bson.M{"_id": normalizeCode(code)}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListModules(ctx context.Context, majorCode string, limit int64) ([]models.Module, error) {
	filter := bson.M{}
	if majorCode != "" {
		filter["programs"] = normalizeCode(majorCode)
	}
	if limit <= 0 || limit > 2000 {
		limit = 500
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit)
	cur, err := s.modules.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var mods []models.Module
	if err := cur.All(ctx, &mods); err != nil {
		return nil, err
	}
	return mods, nil
}

func (s *Store) GetMajor(ctx context.Context, code string) (models.Major, error) {
	var m models.Major
	err := s.majors.FindOne(ctx, bson.M{"_id": normalizeCode(code)}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Major{}, ErrNotFound
	}
	if err != nil {
		return models.Major{}, err
	}
	return m, nil
}

func (s *Store) ListMajors(ctx context.Context) ([]models.Major, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.majors.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var majors []models.Major
	if err := cur.All(ctx, &majors); err != nil {
		return nil, err
	}
	return majors, nil
}

// LoadBatch bulk-upserts a full catalogue snapshot and records its
// provenance. Entries are upserted (not replaced wholesale) so a
// partial failure leaves previously loaded data intact.
func (s *Store) LoadBatch(ctx context.Context, source, batchID string, modules []models.Module, majors []models.Major) error {
	if len(modules) > 0 {
		writes := make([]mongo.WriteModel, 0, len(modules))
		for _, m := range modules {
			m.Code = normalizeCode(m.Code)
			writes = append(writes, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": m.Code}).
				SetReplacement(m).
				SetUpsert(true))
		}
		if _, err := s.modules.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return err
		}
	}

	if len(majors) > 0 {
		writes := make([]mongo.WriteModel, 0, len(majors))
		for _, m := range majors {
			m.Code = normalizeCode(m.Code)
			writes = append(writes, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": m.Code}).
				SetReplacement(m).
				SetUpsert(true))
		}
		if _, err := s.majors.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return err
		}
	}

	meta := models.CatalogueMeta{
		ID:          metaDocID,
		Source:      source,
		BatchID:     batchID,
		ModuleCount: len(modules),
		MajorCount:  len(majors),
		LoadedAt:    time.Now().UTC(),
	}
	_, err := s.meta.ReplaceOne(ctx, bson.M{"_id": metaDocID}, meta, options.Replace().SetUpsert(true))
	return err
}

// GetMeta returns the provenance of the last load, or ErrNotFound when
// the catalogue has never been loaded.
func (s *Store) GetMeta(ctx context.Context) (models.CatalogueMeta, error) {
	var meta models.CatalogueMeta
	err := s.meta.FindOne(ctx, bson.M{"_id": metaDocID}).Decode(&meta)
	if err == mongo.ErrNoDocuments {
		return models.CatalogueMeta{}, ErrNotFound
	}
	if err != nil {
		return models.CatalogueMeta{}, err
	}
	return meta, nil
}

// PruneDanglingModuleRefs removes module codes from majors that no
// longer resolve in the modules collection. Returns the number of
// majors repaired. Run by the daily audit job.
func (s *Store) PruneDanglingModuleRefs(ctx context.Context) (int64, error) {
	majors, err := s.ListMajors(ctx)
	if err != nil {
		return 0, err
	}

	var repaired int64
	for _, major := range majors {
		kept := make([]string, 0, len(major.Modules))
		for _, code := range major.Modules {
			ok, err := s.ModuleExists(ctx, code)
			if err != nil {
				return repaired, err
			}
			if ok {
				kept = append(kept, code)
			}
		}
		if len(kept) == len(major.Modules) {
			continue
		}
		_, err := s.majors.UpdateByID(ctx, major.Code, bson.M{"$set": bson.M{"modules": kept}})
		if err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
