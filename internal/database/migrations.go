package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.TwoFactorCredential{},
		&models.Category{},
		&models.ProductTag{},
		&models.CategoryMessage{},
		&models.Product{},
	)
}

// SeedConfig controls first-boot data. An admin account is only created when
// no user exists; the default catalog tree only when no category exists.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type seedCategory struct {
	Name        string
	Slug        string
	Description string
	Children    []seedCategory
	Tags        []seedTag
}

type seedTag struct {
	Name string
	Slug string
}

// defaultCatalog mirrors the storefront's launch categories.
var defaultCatalog = []seedCategory{
	{Name: "Películas", Slug: "peliculas", Description: "Películas protetoras para telas de celular"},
	{Name: "Capinhas", Slug: "capinhas", Description: "Capinhas e cases para proteção do celular"},
	{Name: "Carregadores", Slug: "carregadores", Description: "Carregadores e cabos USB"},
	{Name: "Acessórios", Slug: "acessorios", Description: "Outros acessórios e peças"},
	{
		Name: "Manutenção", Slug: "manutencao", Description: "Serviços e produtos de manutenção",
		Children: []seedCategory{
			{
				Name: "Celular", Slug: "celular", Description: "Manutenção de celulares",
				Tags: []seedTag{{Name: "Android", Slug: "android"}, {Name: "Apple", Slug: "apple"}},
			},
			{
				Name: "Notebook", Slug: "notebook", Description: "Manutenção de notebooks",
				Tags: []seedTag{{Name: "Formatação", Slug: "formatacao"}, {Name: "Outros", Slug: "outros"}},
			},
			{
				Name: "Computador", Slug: "computador", Description: "Manutenção de computadores",
				Tags: []seedTag{{Name: "Formatação", Slug: "formatacao"}, {Name: "Outros", Slug: "outros"}},
			},
		},
	},
}

// SeedData populates the default category tree and the bootstrap admin.
func SeedData(db *gorm.DB, cfg SeedConfig) error {
	if err := seedCatalog(db); err != nil {
		return err
	}
	return seedAdmin(db, cfg)
}

func seedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, root := range defaultCatalog {
		parent := models.Category{
			Name:        root.Name,
			Slug:        root.Slug,
			Description: root.Description,
		}
		if err := db.Create(&parent).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", root.Slug, err)
		}

		for _, child := range root.Children {
			sub := models.Category{
				Name:        child.Name,
				Slug:        child.Slug,
				Description: child.Description,
				ParentID:    &parent.ID,
			}
			if err := db.Create(&sub).Error; err != nil {
				return fmt.Errorf("seed subcategory %s: %w", child.Slug, err)
			}

			for _, tag := range child.Tags {
				if err := db.Create(&models.ProductTag{
					Name:       tag.Name,
					Slug:       tag.Slug,
					CategoryID: sub.ID,
				}).Error; err != nil {
					return fmt.Errorf("seed tag %s: %w", tag.Slug, err)
				}
			}
		}
	}

	return nil
}

func seedAdmin(db *gorm.DB, cfg SeedConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || strings.TrimSpace(cfg.AdminPassword) == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "Administrator"
	}

	admin := models.User{
		Email:    email,
		Password: hashed,
		Name:     name,
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}

	return nil
}
