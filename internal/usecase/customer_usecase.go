package usecase

import (
	"context"
	"errors"
	"strings"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"

	"go.uber.org/zap"
)

type CustomerUsecase struct {
	tx    repo.TransactionManager
	idGen IDGenerator
	log   *zap.Logger
}

func NewCustomerUsecase(tx repo.TransactionManager, idGen IDGenerator, log *zap.Logger) *CustomerUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerUsecase{tx: tx, idGen: idGen, log: log.Named("customer")}
}

type CustomerInput struct {
	Name        string
	Address     *string
	PhoneNumber *string
}

func (u *CustomerUsecase) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var items []model.Customer
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Customers().List(ctx)
		if err != nil {
			return internalError(err)
		}
		items = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (u *CustomerUsecase) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	var c model.Customer
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Customers().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return customerNotFound(id)
		}
		if err != nil {
			return internalError(err)
		}
		c = found
		return nil
	})
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (u *CustomerUsecase) FindCustomersByName(ctx context.Context, name string) ([]model.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationField("name", "Customer name is required.")
	}

	var items []model.Customer
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Customers().ListByName(ctx, name)
		if err != nil {
			return internalError(err)
		}
		items = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (u *CustomerUsecase) CreateCustomer(ctx context.Context, in CustomerInput) (model.Customer, error) {
	c := model.Customer{
		ID:          u.idGen.NewID(),
		Name:        strings.TrimSpace(in.Name),
		Address:     trimOptional(in.Address),
		PhoneNumber: trimOptional(in.PhoneNumber),
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Customers().Create(ctx, c); err != nil {
			return internalError(err)
		}
		saved, err := r.Customers().FindByID(ctx, c.ID)
		if err != nil {
			return internalError(err)
		}
		c = saved
		return nil
	})
	if err != nil {
		return model.Customer{}, err
	}

	u.log.Info("customer created", zap.String("customer_id", c.ID))
	return c, nil
}

func (u *CustomerUsecase) UpdateCustomer(ctx context.Context, id string, in CustomerInput) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Customers().Update(ctx, model.Customer{
			ID:          id,
			Name:        strings.TrimSpace(in.Name),
			Address:     trimOptional(in.Address),
			PhoneNumber: trimOptional(in.PhoneNumber),
		})
		if errors.Is(err, repo.ErrNotFound) {
			return customerNotFound(id)
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("customer updated", zap.String("customer_id", id))
	return nil
}

// 注文がある顧客は消せない
func (u *CustomerUsecase) DeleteCustomer(ctx context.Context, id string) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Customers().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return customerNotFound(id)
			}
			return internalError(err)
		}

		has, err := r.Customers().HasOrders(ctx, id)
		if err != nil {
			return internalError(err)
		}
		if has {
			return customerHasOrders()
		}

		err = r.Customers().Delete(ctx, id)
		if errors.Is(err, repo.ErrReferenced) {
			return customerHasOrders()
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("customer deleted", zap.String("customer_id", id))
	return nil
}

func customerNotFound(id string) error {
	return notFound(CodeCustomerNotFound, "Customer with ID %s not found.", id)
}

func customerHasOrders() error {
	return businessRule(CodeCustomerHasOrders, "This customer cannot be deleted as they have existing orders.")
}

// 空文字は未設定扱い
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
