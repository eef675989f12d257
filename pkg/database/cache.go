package database

import (
	"context"
	"sync"

	"retail-dashboard/pkg/models"
)

// Source charge le jeu de données complet.
type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
}

// Cache mémorise le premier chargement d'une Source pour toute la durée du processus.
// Le résultat (erreur comprise) n'est jamais invalidé et doit être traité en lecture seule.
type Cache struct {
	load func() (*models.Dataset, error)
}

// NewCache prépare un chargement paresseux; ctx est celui du processus, pas d'une requête.
func NewCache(ctx context.Context, src Source) *Cache {
	return &Cache{
		load: sync.OnceValues(func() (*models.Dataset, error) {
			return src.Load(ctx)
		}),
	}
}

// Dataset renvoie le jeu de données, en le chargeant au premier appel.
func (c *Cache) Dataset() (*models.Dataset, error) {
	return c.load()
}
