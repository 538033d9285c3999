package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func getItemListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.GetItems(c.Request.Context(), c.Query("search"))
		if err != nil {
			respondError(c, "itemHandlers", "getItemListHandler", err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func getItemLookupListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.GetItemLookupList(c.Request.Context())
		if err != nil {
			respondError(c, "itemHandlers", "getItemLookupListHandler", err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		item, err := models.GetItem(c.Request.Context(), id)
		if err != nil {
			respondError(c, "itemHandlers", "getItemHandler", err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// checkDuplicateItemNameHandler answers 409 when ItemName is used by an
// item other than ExcludeID.
func checkDuplicateItemNameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Query("ItemName"))
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ItemName is required"})
			return
		}
		exclude := 0
		if v := strings.TrimSpace(c.Query("ExcludeID")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ExcludeID"})
				return
			}
			exclude = n
		}
		taken, err := models.IsItemNameTaken(c.Request.Context(), name, exclude)
		if err != nil {
			respondError(c, "itemHandlers", "checkDuplicateItemNameHandler", err)
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Item name already exists"})
			return
		}
		c.Status(http.StatusOK)
	}
}

func saveItemHandler(create bool) gin.HandlerFunc {
	name := "UpdateItem"
	if create {
		name = "CreateItem"
	}
	return func(c *gin.Context) {
		var input invoicing.Item
		if !bindJSON(c, &input) {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), name)
		defer span.End()
		span.SetAttributes(attribute.Int("item.id", input.ItemID))

		var res *invoicing.SaveResult
		var err error
		if create {
			res, err = models.CreateItem(ctx, &input)
		} else {
			res, err = models.UpdateItem(ctx, &input)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, "itemHandlers", name, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func createItemHandler() gin.HandlerFunc { return saveItemHandler(true) }
func updateItemHandler() gin.HandlerFunc { return saveItemHandler(false) }

func deleteItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		row, err := models.DeleteItem(ctx, id)
		if err != nil {
			respondError(c, "itemHandlers", "deleteItemHandler", err)
			return
		}
		removeImageObjects(ctx, requestIDFromHeaders(c), row.PictureKey, row.ThumbnailKey)
		c.JSON(http.StatusOK, invoicing.SaveResult{PrimaryKeyID: id, NofRecordsEffected: 1})
	}
}
