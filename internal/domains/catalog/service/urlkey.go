package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/repository"
	"catalog-backend/internal/shared/utils"
)

// MaxURLKeyLength is the storage column limit. Keys are truncated after
// suffixing so a disambiguating suffix is never silently dropped.
const MaxURLKeyLength = 255

var serialSuffix = regexp.MustCompile(`-(\d+)$`)

type urlKeyClaim struct {
	storeID int64
	key     string
}

// URLKeyAllocator assigns a unique per-store-view URL key to every overlay
// that requests one. The claims map is session-scoped: every claimed
// (store, key) pair is recorded immediately so later entities in the same
// batch collide against it, and one session's in-flight claims cannot
// taint another's.
type URLKeyAllocator struct {
	repo repository.URLKeyRepository
	cfg  model.ImportConfig

	// claims maps (store id, key) to the first claiming entity id.
	claims map[urlKeyClaim]int64
}

// NewURLKeyAllocator creates an allocator for one import session.
func NewURLKeyAllocator(repo repository.URLKeyRepository, cfg model.ImportConfig) *URLKeyAllocator {
	return &URLKeyAllocator{
		repo:   repo,
		cfg:    cfg,
		claims: map[urlKeyClaim]int64{},
	}
}

// ResolveAndValidateURLKeys runs after ids are assigned. Entities already
// carrying errors are skipped; per-overlay failures downgrade only the
// owning entity.
func (a *URLKeyAllocator) ResolveAndValidateURLKeys(ctx context.Context, entities []*model.CatalogEntity) error {
	var ids []int64
	for _, e := range entities {
		if e.OK() && e.ID != nil {
			ids = append(ids, *e.ID)
		}
	}

	existing, err := a.repo.FindExistingKeys(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to seed url key allocation: %w", err)
	}

	for _, e := range entities {
		if !e.OK() || e.ID == nil {
			continue
		}

		// Deterministic overlay order keeps collision outcomes stable.
		codes := make([]string, 0, len(e.Overlays))
		for code := range e.Overlays {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			ov := e.Overlays[code]
			if ov.StoreID == nil || ov.URLKey.Mode == model.URLKeyAbsent {
				continue
			}
			if err := a.allocate(ctx, e, ov, existing[*e.ID]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *URLKeyAllocator) allocate(ctx context.Context, e *model.CatalogEntity, ov *model.StoreViewOverlay, storedKeys map[int64]string) error {
	storeID := *ov.StoreID
	entityID := *e.ID

	if ov.URLKey.Mode == model.URLKeyExplicit {
		key := truncateKey(ov.URLKey.Value)
		collides, err := a.collides(ctx, storeID, key, entityID)
		if err != nil {
			return err
		}
		if collides {
			e.AddError(fmt.Sprintf("url key already exists: %s in store view %s", key, ov.StoreCode))
		}
		// Claim even on conflict so siblings in the batch do not get a
		// false green light against the same key.
		a.claim(storeID, key, entityID)
		ov.URLKey.Value = key
		return nil
	}

	// Auto-generate.
	skuSlug := utils.Slugify(e.SKU)
	var base string
	switch a.cfg.URLKeyScheme {
	case model.SchemeFromSKU:
		base = skuSlug
	default:
		name := e.Name(ov.StoreCode)
		if name == "" {
			e.AddError("url key is based on name and product has no name in store view")
			ov.URLKey.Value = ""
			return nil
		}
		base = utils.Slugify(name)
	}
	// Collision checks and claims must see the same key that gets stored.
	// Suffix paths re-truncate after appending.
	base = truncateKey(base)

	// Stability under re-import: when the stored key reduces to the same
	// base the scheme would produce today, keep it unchanged.
	if stored := storedKeys[storeID]; stored != "" && stripDisambiguation(stored, skuSlug) == base {
		a.claim(storeID, stored, entityID)
		ov.URLKey.Value = stored
		return nil
	}

	collides, err := a.collides(ctx, storeID, base, entityID)
	if err != nil {
		return err
	}
	if !collides {
		key := truncateKey(base)
		a.claim(storeID, key, entityID)
		ov.URLKey.Value = key
		return nil
	}

	switch a.cfg.DuplicateStrategy {
	case model.DuplicateAllow:
		key := truncateKey(base)
		a.claim(storeID, key, entityID)
		ov.URLKey.Value = key
		return nil

	case model.DuplicateAddSKU:
		key := truncateKey(base + "-" + skuSlug)
		stillCollides, err := a.collides(ctx, storeID, key, entityID)
		if err != nil {
			return err
		}
		if stillCollides {
			e.AddError(fmt.Sprintf("url key already exists: %s in store view %s", key, ov.StoreCode))
			ov.URLKey.Value = ""
			return nil
		}
		a.claim(storeID, key, entityID)
		ov.URLKey.Value = key
		return nil

	case model.DuplicateAddSerial:
		n, err := a.nextSerial(ctx, storeID, base)
		if err != nil {
			return err
		}
		key := truncateKey(fmt.Sprintf("%s-%d", base, n))
		a.claim(storeID, key, entityID)
		ov.URLKey.Value = key
		return nil

	default: // DuplicateError
		e.AddError(fmt.Sprintf("url key already exists: %s in store view %s", base, ov.StoreCode))
		ov.URLKey.Value = ""
		return nil
	}
}

// collides reports whether the key is already owned by a different entity,
// in this batch's claims or in storage. A match against the entity's own id
// is not a collision.
func (a *URLKeyAllocator) collides(ctx context.Context, storeID int64, key string, entityID int64) (bool, error) {
	if owner, ok := a.claims[urlKeyClaim{storeID, key}]; ok {
		return owner != entityID, nil
	}

	owners, err := a.repo.FindOwners(ctx, storeID, []string{key})
	if err != nil {
		return false, fmt.Errorf("failed to check url key %q: %w", key, err)
	}
	if owner, ok := owners[key]; ok {
		return owner != entityID, nil
	}
	return false, nil
}

func (a *URLKeyAllocator) claim(storeID int64, key string, entityID int64) {
	ck := urlKeyClaim{storeID, key}
	if _, ok := a.claims[ck]; !ok {
		a.claims[ck] = entityID
	}
}

// nextSerial returns one more than the highest numeric suffix seen for the
// base across storage and the batch's claims. The max-scan guarantees
// uniqueness in one step; no retry loop is needed.
func (a *URLKeyAllocator) nextSerial(ctx context.Context, storeID int64, base string) (int, error) {
	stored, err := a.repo.FindKeysWithBase(ctx, storeID, base)
	if err != nil {
		return 0, fmt.Errorf("failed to scan url key serials: %w", err)
	}

	keys := stored
	for ck := range a.claims {
		if ck.storeID == storeID && (ck.key == base || strings.HasPrefix(ck.key, base+"-")) {
			keys = append(keys, ck.key)
		}
	}

	max := 0
	for _, key := range keys {
		if key == base {
			continue // the bare base counts as serial 0
		}
		rest := strings.TrimPrefix(key, base+"-")
		if rest == key {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// stripDisambiguation removes a trailing "-<slug(sku)>" or "-<digits>"
// suffix from a stored key, recovering the base it was generated from.
func stripDisambiguation(key, skuSlug string) string {
	if skuSlug != "" && strings.HasSuffix(key, "-"+skuSlug) {
		return strings.TrimSuffix(key, "-"+skuSlug)
	}
	return serialSuffix.ReplaceAllString(key, "")
}

// truncateKey cuts a key to the column limit on a rune boundary so a
// multi-byte character is never split into invalid UTF-8.
func truncateKey(key string) string {
	if len(key) <= MaxURLKeyLength {
		return key
	}
	cut := MaxURLKeyLength
	for cut > 0 && !utf8.RuneStart(key[cut]) {
		cut--
	}
	return key[:cut]
}
