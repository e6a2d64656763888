package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/storage"
)

const (
	columnCode     = "Code"
	columnProduct  = "Product"
	columnCategory = "Category"
)

// ReadCSV parses a product table. The header row names the columns; the
// order is free and unknown columns are ignored. Code, Product and every
// nutrient column are required. Empty nutrient cells read as zero.
func ReadCSV(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog csv: missing header")
		}
		return nil, fmt.Errorf("catalog csv: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	required := append([]string{columnCode, columnProduct}, nutrition.Names[:]...)
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("catalog csv: missing column %q", name)
		}
	}
	categoryCol, hasCategory := index[columnCategory]

	var products []Product
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("catalog csv: line %d: %w", line, err)
		}

		code, err := strconv.Atoi(strings.TrimSpace(record[index[columnCode]]))
		if err != nil {
			return nil, fmt.Errorf("catalog csv: line %d: invalid code: %w", line, err)
		}

		p := Product{
			Code: code,
			Name: strings.TrimSpace(record[index[columnProduct]]),
		}
		if hasCategory {
			p.Category = strings.TrimSpace(record[categoryCol])
		}

		for i, name := range nutrition.Names {
			raw := strings.TrimSpace(record[index[name]])
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("catalog csv: line %d: invalid %s: %w", line, name, err)
			}
			if v < 0 {
				return nil, fmt.Errorf("catalog csv: line %d: negative %s", line, name)
			}
			p.Nutrients[i] = v
		}

		products = append(products, p)
	}

	return products, nil
}

// LoadCSV reads a product table and builds a catalog from it.
func LoadCSV(r io.Reader) (*Catalog, error) {
	products, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return New(products)
}

// LoadFile loads a catalog from a CSV file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return LoadCSV(f)
}

// ObjectReader is the subset of the blob store used to fetch a catalog file.
type ObjectReader interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// LoadObject loads a catalog from a CSV object in blob storage.
func LoadObject(ctx context.Context, store ObjectReader, key string) (*Catalog, error) {
	data, err := store.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog object %s: %w", key, err)
	}
	return LoadCSV(bytes.NewReader(data))
}

// LoadStore loads a catalog from the products table.
func LoadStore(ctx context.Context, store storage.ProductsStorage) (*Catalog, error) {
	rows, err := store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]Product, len(rows))
	for i, row := range rows {
		products[i] = FromRow(row)
	}
	return New(products)
}

// FromRow converts a storage row to a Product.
func FromRow(row storage.ProductRow) Product {
	p := Product{Code: row.Code, Name: row.Name, Category: row.Category}
	p.Nutrients[nutrition.Proteins] = row.Proteins
	p.Nutrients[nutrition.Fats] = row.Fats
	p.Nutrients[nutrition.Carbohydrates] = row.Carbohydrates
	p.Nutrients[nutrition.Calories] = row.Calories
	p.Nutrients[nutrition.Cholesterol] = row.Cholesterol
	p.Nutrients[nutrition.Sugars] = row.Sugars
	return p
}

// ToRow converts a Product to a storage row.
func ToRow(p Product) storage.ProductRow {
	return storage.ProductRow{
		Code:          p.Code,
		Name:          p.Name,
		Category:      p.Category,
		Proteins:      p.Nutrients[nutrition.Proteins],
		Fats:          p.Nutrients[nutrition.Fats],
		Carbohydrates: p.Nutrients[nutrition.Carbohydrates],
		Calories:      p.Nutrients[nutrition.Calories],
		Cholesterol:   p.Nutrients[nutrition.Cholesterol],
		Sugars:        p.Nutrients[nutrition.Sugars],
	}
}
