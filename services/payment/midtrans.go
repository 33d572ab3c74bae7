package paymentsvc

import (
	"context"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/order"
)

type midtransGateway struct {
	client snap.Client
	logger core.Logger
}

var _ order.Gateway = (*midtransGateway)(nil)

func NewMidtransGateway(conf *core.Config, logger core.Logger) *midtransGateway {
	env := midtrans.Sandbox
	if conf.Gateway.Production {
		env = midtrans.Production
	}
	svc := &midtransGateway{logger: logger}
	svc.client.New(conf.Gateway.ServerKey, env)
	return svc
}

func (svc *midtransGateway) CreateCheckout(ctx context.Context, ord order.Order, cust order.Customer) (order.Checkout, error) {
	if ord.Amount <= 0 {
		return order.Checkout{}, errors.New("checkout amount must be positive")
	}
	if ord.Reference == "" {
		return order.Checkout{}, errors.New("order reference is required")
	}

	fname, lname := splitName(cust.Name)
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  ord.Reference,
			GrossAmt: ord.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: fname,
			LName: lname,
			Email: cust.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    ord.CourseID,
				Price: ord.Amount,
				Qty:   1,
				Name:  "Workshop enrollment",
			},
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}

	resp, err := svc.client.CreateTransaction(req)
	if err != nil {
		return order.Checkout{}, errors.Wrapf(err, "creating checkout for order %s", ord.Reference)
	}
	svc.logger.Info("checkout created", map[string]interface{}{"order": ord.Reference})
	return order.Checkout{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func splitName(name string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
