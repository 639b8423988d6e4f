package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
	"github.com/agrilot/api/internal/platform/pagination"
	"github.com/agrilot/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists client orders in Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert writes a new order document under its pre-assigned ID.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}

	_, err := r.base.Set(ctx, order.ID, fromDomainOrder(order))
	return err
}

// Update replaces the full order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}

	_, err := r.base.Set(ctx, order.ID, fromDomainOrder(order))
	return err
}

// PatchLinkage applies only the provided linkage identifiers to the order
// document. Nil fields stay untouched so a retry never clears an existing link.
func (r *OrderRepository) PatchLinkage(ctx context.Context, orderID string, links repositories.OrderLinkagePatch, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return errors.New("order id is required")
	}
	if links.Empty() {
		return nil
	}

	updates := []firestore.Update{{Path: "updatedAt", Value: updatedAt.UTC()}}
	if links.ProductionLotID != nil {
		updates = append(updates, firestore.Update{Path: "linkedProductionLotId", Value: *links.ProductionLotID})
	}
	if links.QualitySharedLotID != nil {
		updates = append(updates, firestore.Update{Path: "linkedQualitySharedLotId", Value: *links.QualitySharedLotID})
	}
	if links.QualityLotID != nil {
		updates = append(updates, firestore.Update{Path: "linkedQualityLotId", Value: *links.QualityLotID})
	}
	if links.WasteTrackingLotID != nil {
		updates = append(updates, firestore.Update{Path: "linkedWasteTrackingLotId", Value: *links.WasteTrackingLotID})
	}
	if links.NewEntryLotID != nil {
		updates = append(updates, firestore.Update{Path: "linkedNewEntryLotId", Value: *links.NewEntryLotID})
	}

	_, err := r.base.Update(ctx, orderID, updates)
	return err
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order := toDomainOrder(doc.Data)
	order.ID = doc.ID
	return order, nil
}

// List returns orders newest first, filtered by status, client, and creation window.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	if pageSize > pagination.DefaultMaxPageSize {
		pageSize = pagination.DefaultMaxPageSize
	}

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if len(filter.Status) == 1 {
			query = query.Where("status", "==", string(filter.Status[0]))
		} else if len(filter.Status) > 1 {
			statuses := make([]string, 0, len(filter.Status))
			for _, status := range filter.Status {
				statuses = append(statuses, string(status))
			}
			query = query.Where("status", "in", statuses)
		}
		if strings.TrimSpace(filter.ClientName) != "" {
			query = query.Where("clientName", "==", strings.TrimSpace(filter.ClientName))
		}
		if filter.DateRange.From != nil {
			query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			query = query.Where("createdAt", "<", filter.DateRange.To.UTC())
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if len(cursor.StartAfter) > 0 {
			query = query.StartAfter(cursor.StartAfter...)
		}
		return query.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	for i, doc := range docs {
		if i >= pageSize {
			break
		}
		order := toDomainOrder(doc.Data)
		order.ID = doc.ID
		page.Items = append(page.Items, order)
	}

	if len(docs) > pageSize {
		last := docs[pageSize-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt},
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}

	return page, nil
}

type orderDocument struct {
	OrderNumber           string              `firestore:"orderNumber"`
	ClientName            string              `firestore:"clientName"`
	RequestedDeliveryDate time.Time           `firestore:"requestedDeliveryDate"`
	Priority              string              `firestore:"priority"`
	Status                string              `firestore:"status"`
	Items                 []orderItemDocument `firestore:"items"`
	Notes                 string              `firestore:"notes"`
	Progress              int                 `firestore:"progress"`
	TotalProcessingTime   int                 `firestore:"totalProcessingTime"`

	LinkedProductionLotID    *string `firestore:"linkedProductionLotId,omitempty"`
	LinkedQualitySharedLotID *string `firestore:"linkedQualitySharedLotId,omitempty"`
	LinkedQualityLotID       *string `firestore:"linkedQualityLotId,omitempty"`
	LinkedWasteTrackingLotID *string `firestore:"linkedWasteTrackingLotId,omitempty"`
	LinkedNewEntryLotID      *string `firestore:"linkedNewEntryLotId,omitempty"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type orderItemDocument struct {
	Name           string  `firestore:"name"`
	Quantity       float64 `firestore:"quantity"`
	Unit           string  `firestore:"unit"`
	ProcessingTime int     `firestore:"processingTime"`
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:           strings.TrimSpace(order.OrderNumber),
		ClientName:            strings.TrimSpace(order.ClientName),
		RequestedDeliveryDate: order.RequestedDeliveryDate.UTC(),
		Priority:              string(order.Priority),
		Status:                string(order.Status),
		Notes:                 order.Notes,
		Progress:              order.Progress,
		TotalProcessingTime:   order.TotalProcessingTime,

		LinkedProductionLotID:    order.LinkedProductionLotID,
		LinkedQualitySharedLotID: order.LinkedQualitySharedLotID,
		LinkedQualityLotID:       order.LinkedQualityLotID,
		LinkedWasteTrackingLotID: order.LinkedWasteTrackingLotID,
		LinkedNewEntryLotID:      order.LinkedNewEntryLotID,

		CreatedAt: order.CreatedAt.UTC(),
		UpdatedAt: order.UpdatedAt.UTC(),
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			Name:           strings.TrimSpace(item.Name),
			Quantity:       item.Quantity,
			Unit:           strings.TrimSpace(item.Unit),
			ProcessingTime: item.ProcessingTime,
		})
	}
	return doc
}

func toDomainOrder(doc orderDocument) domain.Order {
	order := domain.Order{
		OrderNumber:           doc.OrderNumber,
		ClientName:            doc.ClientName,
		RequestedDeliveryDate: doc.RequestedDeliveryDate,
		Priority:              domain.OrderPriority(doc.Priority),
		Status:                domain.OrderStatus(doc.Status),
		Notes:                 doc.Notes,
		Progress:              doc.Progress,
		TotalProcessingTime:   doc.TotalProcessingTime,

		LinkedProductionLotID:    doc.LinkedProductionLotID,
		LinkedQualitySharedLotID: doc.LinkedQualitySharedLotID,
		LinkedQualityLotID:       doc.LinkedQualityLotID,
		LinkedWasteTrackingLotID: doc.LinkedWasteTrackingLotID,
		LinkedNewEntryLotID:      doc.LinkedNewEntryLotID,

		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			ProcessingTime: item.ProcessingTime,
		})
	}
	return order
}
