package main

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-api/internal/domain/coupon"
	"github.com/xenking/checkout-api/internal/domain/product"
	"github.com/xenking/checkout-api/internal/domain/tax"
)

// catalog is the content of a seed file:
//
//	{"products": [{"id", "name", "price"}],
//	 "taxes": [{"taxNumber", "percent"}],
//	 "coupons": [{"code", "type", "value"}]}
//
// Decimal members may be JSON numbers or strings.
type catalog struct {
	Products []product.Product
	Taxes    []tax.Rate
	Coupons  []coupon.Coupon
}

func parseCatalog(data []byte) (*catalog, error) {
	var c catalog
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product #%d", len(c.Products)+1)
				}
				c.Products = append(c.Products, p)
				return nil
			})
		case "taxes":
			return d.Arr(func(d *jx.Decoder) error {
				r, err := decodeRate(d)
				if err != nil {
					return errors.Wrapf(err, "tax #%d", len(c.Taxes)+1)
				}
				c.Taxes = append(c.Taxes, r)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				cp, err := decodeCoupon(d)
				if err != nil {
					return errors.Wrapf(err, "coupon #%d", len(c.Coupons)+1)
				}
				c.Coupons = append(c.Coupons, cp)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &c, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return p, err
	}
	if p.ID <= 0 || p.Name == "" {
		return p, errors.New("id and name are required")
	}
	return p, nil
}

func decodeRate(d *jx.Decoder) (tax.Rate, error) {
	var r tax.Rate
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "taxNumber":
			r.Number, err = d.Str()
		case "percent":
			r.Percent, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return r, err
	}
	if !tax.ValidNumber(r.Number) {
		return r, errors.Errorf("invalid tax number %q", r.Number)
	}
	return r, nil
}

func decodeCoupon(d *jx.Decoder) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, err := d.Str()
			c.Code = s
			return err
		case "type":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Type, err = coupon.ParseType(s)
			return err
		case "value":
			v, err := decodeDecimal(d)
			c.Value = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return c, err
	}
	if c.Code == "" || c.Type == "" {
		return c, errors.New("code and type are required")
	}
	return c, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		s = n.String()
	default:
		return decimal.Zero, errors.Errorf("expected number, got %s", d.Next())
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse decimal")
	}
	if v.IsNegative() {
		return decimal.Zero, errors.Errorf("negative amount %s", v)
	}
	return v, nil
}
