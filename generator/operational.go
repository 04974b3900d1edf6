package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

var storeSuffixes = []string{"Centrum", "Station", "Mall", "Plaza", "Outlet", "Noord", "Zuid"}

// generateStores emits count retail stores spread by country weight, plus
// one webshop store per weighted country that online orders are booked on.
func (g *Generator) generateStores(rng *rand.Rand, count int) ([]models.Store, error) {
	countryWeights := g.weights(config.WeightCountry)
	openFrom := g.cfg.DateRange.Start.AddDate(-6, 0, 0)
	openTo := g.cfg.DateRange.Start.AddDate(0, 0, -1)

	stores := make([]models.Store, 0, count+len(countryWeights))
	for _, code := range config.SortedWeightKeys(countryWeights) {
		if countryWeights[code] <= 0 {
			continue
		}
		country, err := countryOf(code)
		if err != nil {
			return nil, err
		}
		id, _, err := g.nextId(models.TableStores)
		if err != nil {
			return nil, err
		}
		stores = append(stores, models.Store{
			StoreId:     id,
			Name:        "Webshop " + country.Name,
			CountryCode: code,
			City:        country.Cities[0],
			StoreType:   models.StoreTypeWebshop,
			Currency:    country.Currency,
			OpenedOn:    openFrom,
		})
	}

	for _, code := range Allocation(rng, count, countryWeights) {
		country, err := countryOf(code)
		if err != nil {
			return nil, err
		}
		id, _, err := g.nextId(models.TableStores)
		if err != nil {
			return nil, err
		}
		city := pick(rng, country.Cities)
		stores = append(stores, models.Store{
			StoreId:     id,
			Name:        city + " " + pick(rng, storeSuffixes),
			CountryCode: code,
			City:        city,
			StoreType:   models.StoreTypeRetail,
			Currency:    country.Currency,
			OpenedOn:    DateBetween(rng, openFrom, openTo),
		})
	}
	return stores, nil
}

var productNouns = map[models.ProductCategory][]string{
	models.ProductCategoryApparel:     {"T-Shirt", "Hoodie", "Jeans", "Jacket", "Sweater", "Dress"},
	models.ProductCategoryFootwear:    {"Sneaker", "Boot", "Sandal", "Loafer", "Running Shoe"},
	models.ProductCategoryAccessories: {"Cap", "Scarf", "Belt", "Backpack", "Wallet", "Sunglasses"},
	models.ProductCategoryHome:        {"Candle", "Cushion", "Throw", "Vase", "Lamp", "Mug Set"},
}

var productAdjectives = []string{"Classic", "Urban", "Organic", "Essential", "Premium", "Nordic", "Vintage"}

func (g *Generator) generateProducts(rng *rand.Rand, count int) ([]models.Product, error) {
	products := make([]models.Product, 0, count)
	for _, raw := range Allocation(rng, count, g.weights(config.WeightProductCategory)) {
		category, err := models.ParseProductCategory(raw)
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.product_category", raw, err)
		}
		band, ok := g.cfg.PriceBands[raw]
		if !ok {
			return nil, models.NewConfigurationError("price_bands."+raw, "missing price band", nil)
		}
		id, seq, err := g.nextId(models.TableProducts)
		if err != nil {
			return nil, err
		}
		min, max := band.Bounds()
		products = append(products, models.Product{
			ProductId: id,
			Sku:       fmt.Sprintf("%s-%06d", strings.ToUpper(raw[:3]), seq),
			Name:      pick(rng, productAdjectives) + " " + pick(rng, productNouns[category]),
			Category:  category,
			UnitPrice: DecimalBetween(rng, min, max),
			Currency:  g.cfg.ReportingCurrency,
		})
	}
	return products, nil
}

func (g *Generator) generateCustomers(rng *rand.Rand, count int) ([]models.Customer, error) {
	countries := Allocation(rng, count, g.weights(config.WeightCountry))
	segments := Allocation(rng, count, g.weights(config.WeightCustomerSegment))
	regFrom := g.cfg.DateRange.Start.AddDate(-3, 0, 0)

	customers := make([]models.Customer, 0, count)
	for i := 0; i < count; i++ {
		segment, err := models.ParseCustomerSegment(segments[i])
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.customer_segment", segments[i], err)
		}
		code := countries[i]
		id, seq, err := g.nextId(models.TableCustomers)
		if err != nil {
			return nil, err
		}
		first, last := RandomName(rng, code)
		phone, err := PhoneNumber(rng, code)
		if err != nil {
			return nil, err
		}
		customers = append(customers, models.Customer{
			CustomerId:   id,
			FirstName:    first,
			LastName:     last,
			Email:        Email(first, last, seq),
			Phone:        phone,
			CountryCode:  code,
			Segment:      segment,
			RegisteredOn: DateBetween(rng, regFrom, g.cfg.DateRange.Start),
		})
	}
	return customers, nil
}

// generateOnlineOrders books every online order on the webshop store of the
// customer's country, in that country's currency and VAT rate.
func (g *Generator) generateOnlineOrders(ctx context.Context, rng *rand.Rand, count int, in *Tables) ([]models.Order, []models.OrderLine, error) {
	if count == 0 {
		return []models.Order{}, []models.OrderLine{}, nil
	}
	if len(in.Customers) == 0 {
		return nil, nil, emptyPool(models.TableOrders, models.TableCustomers)
	}
	if len(in.Products) == 0 {
		return nil, nil, emptyPool(models.TableOrders, models.TableProducts)
	}
	webshops := make(map[string]models.Store)
	for _, s := range in.Stores {
		if s.StoreType == models.StoreTypeWebshop {
			webshops[s.CountryCode] = s
		}
	}
	if len(webshops) == 0 {
		return nil, nil, emptyPool(models.TableOrders, models.TableStores)
	}

	statuses := Allocation(rng, count, g.weights(config.WeightOrderStatus))
	opts := g.cfg.Order

	type draft struct {
		order models.Order
		lines []models.OrderLine
	}
	drafts := make([]draft, 0, count)
	for i := 0; i < count; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		status, err := models.ParseOrderStatus(statuses[i])
		if err != nil {
			return nil, nil, models.NewConfigurationError("distribution_weights.order_status", statuses[i], err)
		}
		customer := pick(rng, in.Customers)
		store, ok := webshops[customer.CountryCode]
		if !ok {
			return nil, nil, emptyPool(models.TableOrders, models.TableStores)
		}
		vatRate, err := g.vat.Rate(customer.CountryCode)
		if err != nil {
			return nil, nil, err
		}
		from := g.cfg.DateRange.Start
		if customer.RegisteredOn.After(from) {
			from = customer.RegisteredOn
		}
		orderDate := TimeBetweenHours(rng, DateBetween(rng, from, g.cfg.DateRange.End), 0, 24)

		lines := make([]models.OrderLine, 0, opts.LinesMax)
		subtotal := decimal.Zero
		for n := IntBetween(rng, opts.LinesMin, opts.LinesMax); n > 0; n-- {
			product := pick(rng, in.Products)
			unitPrice, err := g.localPrice(product.UnitPrice, store.Currency, orderDate)
			if err != nil {
				return nil, nil, err
			}
			qty := IntBetween(rng, 1, opts.QuantityMax)
			lineTotal := utils.RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
			subtotal = subtotal.Add(lineTotal)
			lines = append(lines, models.OrderLine{
				ProductRef: product.ProductId,
				Quantity:   qty,
				UnitPrice:  unitPrice,
				LineTotal:  lineTotal,
			})
		}
		tax := utils.CalculateTaxAmount(subtotal, vatRate)
		drafts = append(drafts, draft{
			order: models.Order{
				CustomerId:  customer.CustomerId,
				StoreId:     store.StoreId,
				Channel:     models.ChannelOnline,
				Fulfillment: models.FulfillmentDelivery,
				CountryCode: customer.CountryCode,
				Subtotal:    subtotal,
				Tax:         tax,
				VatRate:     vatRate,
				Total:       subtotal.Add(tax),
				Currency:    store.Currency,
				OrderDate:   orderDate,
				Status:      status,
			},
			lines: lines,
		})
	}

	// ids follow order date so the order sequence reads chronologically
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].order.OrderDate.Before(drafts[j].order.OrderDate)
	})

	orders := make([]models.Order, 0, count)
	orderLines := make([]models.OrderLine, 0, count*opts.LinesMax)
	for _, d := range drafts {
		orderId, _, err := g.nextId(models.TableOrders)
		if err != nil {
			return nil, nil, err
		}
		d.order.OrderId = orderId
		orders = append(orders, d.order)
		for _, l := range d.lines {
			lineId, _, err := g.nextId(models.TableOrderLines)
			if err != nil {
				return nil, nil, err
			}
			l.OrderLineId = lineId
			l.OrderId = orderId
			orderLines = append(orderLines, l)
		}
	}
	return orders, orderLines, nil
}
