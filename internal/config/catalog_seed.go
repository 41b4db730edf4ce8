package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type CatalogSeed struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Price         string `yaml:"price"`
	StockQuantity int    `yaml:"stock_quantity"`
}

// PriceDecimal 價格以字串保存, 避免 yaml 轉 float 失去精度
func (p SeedProduct) PriceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(p.Price)
}

// LoadCatalogSeed 讀取商品初始資料
//
// 錯誤:
//   - 檔案不存在或 yaml 格式錯誤
func LoadCatalogSeed(path string) (*CatalogSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}

	var seed CatalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	for i, p := range seed.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog seed product #%d has no name", i+1)
		}
		if _, err := p.PriceDecimal(); err != nil {
			return nil, fmt.Errorf("catalog seed product %q has invalid price %q: %w", p.Name, p.Price, err)
		}
	}
	return &seed, nil
}
