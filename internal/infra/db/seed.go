package db

import (
	"context"
	"errors"
	"fmt"

	"orderapp/internal/usecase"
	auth "orderapp/internal/usecase/auth_usecase"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DemoPassword = "ThisIsADemoPassword1!"

// デモ用のユーザー
var DemoUsers = []string{"user1@example.com", "user2@example.com", "user3@example.com"}

const DemoAdmin = "admin@example.com"

type demoProduct struct {
	name  string
	price string
	stock int64
}

var demoProducts = []demoProduct{
	{"Laptop", "1299.99", 25},
	{"Wireless Mouse", "24.99", 150},
	{"Mechanical Keyboard", "89.50", 80},
	{"27in Monitor", "329.00", 40},
	{"USB-C Hub", "45.00", 120},
	{"Webcam", "59.99", 70},
	{"Headphones", "149.00", 60},
	{"Desk Lamp", "34.95", 90},
	{"Office Chair", "249.00", 20},
	{"Standing Desk", "499.00", 10},
	{"External SSD 1TB", "119.99", 55},
	{"Portable Charger", "39.99", 200},
	{"Bluetooth Speaker", "79.00", 65},
	{"Graphics Tablet", "199.00", 15},
	{"Microphone", "129.00", 35},
	{"Ethernet Cable", "9.99", 300},
	{"Laptop Stand", "42.00", 75},
	{"Mouse Pad", "12.50", 250},
	{"Printer", "179.00", 12},
	{"Smart Plug", "19.99", 180},
}

type demoCustomer struct {
	name    string
	address string
	phone   string
}

var demoCustomers = []demoCustomer{
	{"Alice Johnson", "12 Maple St, Springfield", "(555) 201-0001"},
	{"Bob Smith", "34 Oak Ave, Riverton", "555-202-0002"},
	{"Carol White", "56 Pine Rd, Lakeside", "+1 555 203 0003"},
	{"David Brown", "78 Cedar Ln, Hillview", "555.204.0004"},
	{"Eve Davis", "90 Birch Blvd, Fairview", "(555) 205-0005"},
	{"Frank Miller", "11 Elm Ct, Brookfield", "555-206-0006"},
	{"Grace Wilson", "22 Ash Dr, Greenville", "555 207 0007"},
	{"Henry Moore", "33 Spruce Way, Ashford", "(555) 208-0008"},
	{"Ivy Taylor", "44 Willow Pl, Clearwater", "555-209-0009"},
	{"Jack Anderson", "55 Poplar St, Westbrook", "555-210-0010"},
}

// Seeder は起動時にデモデータを入れる（既にあれば何もしない）
type Seeder struct {
	Products  *usecase.ProductUsecase
	Customers *usecase.CustomerUsecase
	Orders    *usecase.OrderUsecase
	Register  *auth.RegisterUserUsecase
	Log       *zap.Logger
}

func (s *Seeder) Seed(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	if err := s.seedUsers(ctx); err != nil {
		return err
	}

	existing, err := s.Products.ListProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 1})
	if err != nil {
		return err
	}
	if existing.Total > 0 {
		log.Info("demo catalog already present, skipping")
		return nil
	}

	productIDs := make([]int64, 0, len(demoProducts))
	for _, p := range demoProducts {
		created, err := s.Products.CreateProduct(ctx, usecase.CreateProductInput{
			Name:          p.name,
			Price:         decimal.RequireFromString(p.price),
			StockQuantity: p.stock,
		})
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
		productIDs = append(productIDs, created.ID)
	}

	customerIDs := make([]string, 0, len(demoCustomers))
	for _, c := range demoCustomers {
		address, phone := c.address, c.phone
		created, err := s.Customers.CreateCustomer(ctx, usecase.CustomerInput{
			Name:        c.name,
			Address:     &address,
			PhoneNumber: &phone,
		})
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.name, err)
		}
		customerIDs = append(customerIDs, created.ID)
	}

	// 注文は在庫を減らすのでusecase経由で作る
	for i := 0; i < 5; i++ {
		_, err := s.Orders.CreateOrder(ctx, usecase.CreateOrderInput{
			CustomerID: customerIDs[i],
			Items: []usecase.OrderItemInput{
				{ProductID: productIDs[i], Quantity: 1},
				{ProductID: productIDs[(i+5)%len(productIDs)], Quantity: int64(i + 1)},
			},
		})
		if err != nil {
			return fmt.Errorf("seed order %d: %w", i, err)
		}
	}

	log.Info("demo data seeded",
		zap.Int("products", len(productIDs)),
		zap.Int("customers", len(customerIDs)),
	)
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) error {
	for _, email := range DemoUsers {
		_, err := s.Register.Execute(ctx, auth.RegisterUserInput{Email: email, Password: DemoPassword})
		if err != nil && !errors.Is(err, auth.ErrEmailAlreadyExists) {
			return fmt.Errorf("seed user %s: %w", email, err)
		}
	}
	_, err := s.Register.ExecuteAdmin(ctx, auth.RegisterUserInput{Email: DemoAdmin, Password: DemoPassword})
	if err != nil && !errors.Is(err, auth.ErrEmailAlreadyExists) {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
